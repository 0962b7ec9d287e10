package httpapi

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"okrboard/internal/apperr"
	"okrboard/internal/importer"
	"okrboard/internal/okr"
	"okrboard/internal/session"
	"okrboard/internal/store"
	"okrboard/internal/tabular"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxUploadBytes  = 10 << 20
)

// sessionHandler is a handler that needs the caller's session.
type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session) error

// withSession adapts a sessionHandler, writing any returned error.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFrom(r)
		if err == nil {
			err = h(w, r, sess)
		}
		if err != nil {
			s.writeError(w, r, err)
		}
	}
}

func idParam(r *http.Request) okr.ID {
	return okr.ID(chi.URLParam(r, "id"))
}

func (s *Server) signOut(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	s.sessions.Close(r.Context(), sess.Tenant)
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) getDataset(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	ds, err := sess.Dataset(r.URL.Query().Get("source"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, ds)
	return nil
}

func (s *Server) getSummary(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	writeJSON(w, http.StatusOK, sess.Summary())
	return nil
}

func (s *Server) getView(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	writeJSON(w, http.StatusOK, viewRequest{Name: sess.Store.View()})
	return nil
}

func (s *Server) setView(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	var req viewRequest
	if err := decode(r, &req); err != nil {
		return err
	}
	if err := sess.Store.SetView(strings.TrimSpace(req.Name)); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, viewRequest{Name: sess.Store.View()})
	return nil
}

func (s *Server) addCompanyObjective(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	var req titleRequest
	if err := decode(r, &req); err != nil {
		return err
	}
	obj, err := sess.Store.AddCompanyObjective(r.Context(), req.Title)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, obj)
	return nil
}

func (s *Server) renameCompanyObjective(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	var req titleRequest
	if err := decode(r, &req); err != nil {
		return err
	}
	obj, err := sess.Store.RenameCompanyObjective(r.Context(), idParam(r), req.Title)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, obj)
	return nil
}

func (s *Server) deleteCompanyObjective(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	if err := sess.Store.DeleteCompanyObjective(r.Context(), idParam(r)); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) addDepartment(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	var req nameRequest
	if err := decode(r, &req); err != nil {
		return err
	}
	dept, err := sess.Store.AddDepartment(r.Context(), req.Name)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, dept)
	return nil
}

func (s *Server) renameDepartment(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	var req nameRequest
	if err := decode(r, &req); err != nil {
		return err
	}
	dept, err := sess.Store.RenameDepartment(r.Context(), idParam(r), req.Name)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, dept)
	return nil
}

func (s *Server) deleteDepartment(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	if err := sess.Store.DeleteDepartment(r.Context(), idParam(r)); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) addDepartmentObjective(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	var req departmentObjectiveRequest
	if err := decode(r, &req); err != nil {
		return err
	}
	obj, err := sess.Store.AddDepartmentObjective(r.Context(), idParam(r), req.Title, req.CompanyObjectiveID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, obj)
	return nil
}

func (s *Server) updateDepartmentObjective(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	var req departmentObjectiveUpdate
	if err := decode(r, &req); err != nil {
		return err
	}
	obj, err := sess.Store.UpdateDepartmentObjective(r.Context(), idParam(r), store.DepartmentObjectiveUpdate{
		Title:              req.Title,
		CompanyObjectiveID: req.CompanyObjectiveID,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, obj)
	return nil
}

func (s *Server) deleteDepartmentObjective(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	if err := sess.Store.DeleteDepartmentObjective(r.Context(), idParam(r)); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// addKR serves both company and department objectives; ids are unique
// across the dataset.
func (s *Server) addKR(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	var req krRequest
	if err := decode(r, &req); err != nil {
		return err
	}
	kr, err := sess.Store.AddKR(r.Context(), idParam(r), req.input())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, kr)
	return nil
}

func (s *Server) updateKR(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	var req krRequest
	if err := decode(r, &req); err != nil {
		return err
	}
	kr, err := sess.Store.UpdateKR(r.Context(), idParam(r), req.input())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, kr)
	return nil
}

func (s *Server) deleteKR(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	if err := sess.Store.DeleteKR(r.Context(), idParam(r)); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) recordCheckIn(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	var req checkInRequest
	if err := decode(r, &req); err != nil {
		return err
	}
	kr, err := sess.Store.RecordCheckIn(r.Context(), idParam(r), okr.CheckIn{
		Period: strings.TrimSpace(req.Period),
		Target: req.Target,
		Actual: req.Actual,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, kr)
	return nil
}

// versionSummary omits the snapshot data from version listings.
type versionSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
	KRs       int    `json:"krs"`
}

func summarizeVersion(v okr.Version) versionSummary {
	return versionSummary{
		ID:        v.ID,
		Name:      v.Name,
		CreatedAt: v.CreatedAt.UTC().Format(time.RFC3339),
		KRs:       v.Data.KRCount(),
	}
}

func (s *Server) listVersions(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	list := sess.Versions.List()
	out := make([]versionSummary, 0, len(list))
	for _, v := range list {
		out = append(out, summarizeVersion(v))
	}
	writeJSON(w, http.StatusOK, out)
	return nil
}

func (s *Server) saveVersion(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	var req versionRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			return err
		}
	}
	v, err := sess.Versions.Save(r.Context(), req.Name)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, summarizeVersion(v))
	return nil
}

func (s *Server) deleteVersion(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	if err := sess.Versions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) diffVersion(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	text, err := sess.Versions.Diff(chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/x-diff; charset=utf-8")
	_, _ = io.WriteString(w, text)
	return nil
}

// export renders the workbook into memory first so a failed export still
// gets a JSON error instead of a truncated download.
func (s *Server) export(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	var buf bytes.Buffer
	if err := sess.Export(&buf, r.URL.Query().Get("source")); err != nil {
		return err
	}
	name := strings.TrimSpace(r.URL.Query().Get("filename"))
	if name == "" {
		name = "OKR_Verileri"
	}
	writeAttachment(w, name+".xlsx", buf.Bytes())
	return nil
}

func (s *Server) importWorkbook(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	mode, err := importer.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		return err
	}
	body, err := uploadedFile(w, r)
	if err != nil {
		return err
	}
	defer body.Close()
	stats, err := sess.Import(r.Context(), body, mode)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, stats)
	return nil
}

// importOrgChart accepts either a workbook upload or a JSON list of rows.
func (s *Server) importOrgChart(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	var (
		root okr.OrgNode
		err  error
	)
	if mediaType(r) == "application/json" {
		var req orgChartRowsRequest
		if err := decode(r, &req); err != nil {
			return err
		}
		rows := make([]tabular.OrgRow, 0, len(req.Rows))
		for _, row := range req.Rows {
			rows = append(rows, tabular.OrgRow{Name: strings.TrimSpace(row.Name), Parent: strings.TrimSpace(row.Parent)})
		}
		root, err = sess.SetOrgChartRows(r.Context(), rows)
	} else {
		body, uerr := uploadedFile(w, r)
		if uerr != nil {
			return uerr
		}
		defer body.Close()
		root, err = sess.ImportOrgChart(r.Context(), body)
	}
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, root)
	return nil
}

func (s *Server) okrTemplate(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := tabular.WriteOKRTemplate(&buf); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeAttachment(w, "OKR_Sablonu.xlsx", buf.Bytes())
}

func (s *Server) orgChartTemplate(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := tabular.WriteOrgChartTemplate(&buf); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeAttachment(w, "Organizasyon_Semasi_Sablonu.xlsx", buf.Bytes())
}

func (s *Server) suggestObjectives(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	out, err := sess.SuggestObjectives(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string][]string{"suggestions": out})
	return nil
}

func (s *Server) suggestKRs(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	var req suggestKRRequest
	if err := decode(r, &req); err != nil {
		return err
	}
	out, err := sess.SuggestKRs(r.Context(), req.Objective)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string][]string{"suggestions": out})
	return nil
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	var req askRequest
	if err := decode(r, &req); err != nil {
		return err
	}
	answer, err := sess.Ask(r.Context(), req.Question)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
	return nil
}

func writeAttachment(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func mediaType(r *http.Request) string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}

// uploadedFile returns the "file" part of a multipart form, or the raw body
// for any other content type.
func uploadedFile(w http.ResponseWriter, r *http.Request) (io.ReadCloser, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if mediaType(r) != "multipart/form-data" {
		return r.Body, nil
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, apperr.ImportFormat("the upload could not be read", err)
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, apperr.ImportFormat(`the upload has no "file" field`, err)
	}
	return file, nil
}
