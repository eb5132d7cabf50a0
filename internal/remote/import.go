package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/TallerDrive/TallerDrive/internal/model"
)

// 批量导入的两段式端点：
// - preview：上传表格，远端解析 + 校验，数据暂存在远端（staging token 标识）
// - confirm：只回传 staging token，远端落库
// - release：显式释放被取消/被顶替的暂存数据（不依赖远端 TTL 回收）
// - template：下载导入模板（二进制，无状态影响）

// ImportValidationError 预览阶段的行级校验错误。
type ImportValidationError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ImportPreview 预览响应：草稿批次 + 校验结果 + staging token。
type ImportPreview struct {
	Success          bool                    `json:"success"`
	Clients          []model.Client          `json:"clients"`
	Vehicles         []model.Vehicle         `json:"vehicles"`
	ValidationErrors []ImportValidationError `json:"validationErrors"`
	Warnings         []string                `json:"warnings"`
	TempFilePath     string                  `json:"tempFilePath"`
	TempFileName     string                  `json:"tempFileName"`
	Message          string                  `json:"message"`
}

// ImportStats confirm 成功后的落库统计。
type ImportStats struct {
	ClientsProcessed  int `json:"clientsProcessed"`
	VehiclesProcessed int `json:"vehiclesProcessed"`
	ClientsSkipped    int `json:"clientsSkipped"`
	VehiclesSkipped   int `json:"vehiclesSkipped"`
}

// ImportConfirmResult confirm 响应。
type ImportConfirmResult struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Stats   *ImportStats `json:"stats"`
	Errors  []string     `json:"errors"`
}

// PreviewImport 以 multipart 上传表格文件，换取预览批次与 staging token。
func (c *Client) PreviewImport(ctx context.Context, filename string, file io.Reader) (*ImportPreview, error) {
	const op = "import preview"
	if c == nil || c.http == nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("client not initialized")}
	}
	if file == nil {
		return nil, fmt.Errorf("file is nil")
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/import/preview", pr)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	raw, err := c.roundTrip(ctx, op, req)
	if err != nil {
		return nil, err
	}

	preview := &ImportPreview{}
	if err := json.Unmarshal(raw, preview); err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("malformed preview: %w", err)}
	}
	if !preview.Success {
		return nil, &APIError{Op: op, Message: preview.Message}
	}
	if preview.TempFilePath == "" {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("preview missing staging token")}
	}
	return preview, nil
}

// ConfirmImport 回传 staging token，让远端把暂存批次落库。
func (c *Client) ConfirmImport(ctx context.Context, tempFilePath string) (*ImportConfirmResult, error) {
	const op = "import confirm"
	if tempFilePath == "" {
		return nil, fmt.Errorf("staging token is empty")
	}

	req, err := c.newJSONRequest(ctx, op, http.MethodPost, "/api/import/confirm",
		map[string]string{"tempFilePath": tempFilePath})
	if err != nil {
		return nil, err
	}

	raw, err := c.roundTrip(ctx, op, req)
	if err != nil {
		return nil, err
	}

	result := &ImportConfirmResult{}
	if err := json.Unmarshal(raw, result); err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("malformed confirm result: %w", err)}
	}
	if !result.Success {
		return nil, &APIError{Op: op, Message: result.Message}
	}
	return result, nil
}

// ReleaseImport 显式释放暂存批次（取消或被新上传顶替时调用）。
// 尽力而为：远端也有 TTL 兜底回收。
func (c *Client) ReleaseImport(ctx context.Context, tempFilePath string) error {
	const op = "import release"
	if tempFilePath == "" {
		return fmt.Errorf("staging token is empty")
	}
	return c.doJSON(ctx, op, http.MethodPost, "/api/import/release",
		map[string]string{"tempFilePath": tempFilePath}, nil)
}

// DownloadTemplate 下载导入模板表格（原始字节）。
func (c *Client) DownloadTemplate(ctx context.Context) ([]byte, error) {
	const op = "import template"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/import/template", nil)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	return c.roundTrip(ctx, op, req)
}
