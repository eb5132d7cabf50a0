package gateway

import (
	"net/http"

	"github.com/TallerDrive/TallerDrive/internal/importer"
)

// maxImportUploadBytes 预览上传大小上限（表格文件，32MB 足够）。
const maxImportUploadBytes = 32 << 20

func (g *Gateway) handleImportPreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxImportUploadBytes)
	if err := r.ParseMultipartForm(maxImportUploadBytes); err != nil {
		g.writeBadRequest(w, "malformed multipart upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		g.writeBadRequest(w, "file field required")
		return
	}
	defer file.Close()

	preview, err := g.pipeline.Start(r.Context(), header.Filename, file)
	if err != nil {
		g.writeErr(w, err)
		return
	}
	g.writeOK(w, http.StatusOK, preview)
}

func (g *Gateway) handleImportConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	result, err := g.pipeline.Confirm(r.Context())
	if err != nil {
		g.writeErr(w, err)
		return
	}
	g.writeOK(w, http.StatusOK, result)
}

func (g *Gateway) handleImportCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := g.pipeline.Cancel(r.Context()); err != nil {
		g.writeErr(w, err)
		return
	}
	g.writeOK(w, http.StatusOK, nil)
}

// importStateView 导入管线状态（Error 状态带原因，便于 UI 呈现）。
type importStateView struct {
	State   importer.State `json:"state"`
	Error   string         `json:"error,omitempty"`
	Preview any            `json:"preview,omitempty"`
}

func (g *Gateway) handleImportState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	view := importStateView{State: g.pipeline.State()}
	if err := g.pipeline.Err(); err != nil && view.State == importer.StateError {
		view.Error = err.Error()
	}
	if preview := g.pipeline.Preview(); preview != nil {
		view.Preview = preview
	}
	g.writeOK(w, http.StatusOK, view)
}

func (g *Gateway) handleImportTemplate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	data, err := g.remote.DownloadTemplate(r.Context())
	if err != nil {
		g.writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="import-template.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
