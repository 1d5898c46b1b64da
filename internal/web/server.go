// Package web serves the single chat page and its form actions.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"document-chat/internal/chat"
	"document-chat/internal/models"
	"document-chat/internal/parser"
	"document-chat/internal/session"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	sessionCookie = "session_id"
	pageTitle     = "LHP AI Chatbot"
)

type Handler struct {
	chat         *chat.Service
	sessions     *session.Manager
	maxFileBytes int64
}

func NewHandler(svc *chat.Service, sessions *session.Manager, maxFileBytes int64) *Handler {
	return &Handler{chat: svc, sessions: sessions, maxFileBytes: maxFileBytes}
}

func NewRouter(h *Handler, ginMode string) *gin.Engine {
	if ginMode != "" {
		gin.SetMode(ginMode)
	}
	router := gin.New()
	router.Use(requestLogger(), gin.Recovery())
	router.SetHTMLTemplate(template.Must(template.New("").ParseFS(templatesFS, "templates/*.html")))

	router.GET("/", h.Index)
	router.GET("/healthz", h.Health)
	router.POST("/upload", h.Upload)
	router.POST("/save/:index", h.Save)
	router.POST("/ask", h.Ask)
	router.POST("/reset", h.Reset)
	return router
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("Request")
	}
}

// currentSession returns the caller's session, starting one when the cookie
// is missing or unknown.
func (h *Handler) currentSession(c *gin.Context) (*session.State, error) {
	if id, err := c.Cookie(sessionCookie); err == nil {
		if st, ok := h.sessions.Get(id); ok {
			return st, nil
		}
	}
	st, err := h.sessions.Create()
	if err != nil {
		return nil, err
	}
	c.SetCookie(sessionCookie, st.ID, 0, "/", "", false, true)
	return st, nil
}

type pageData struct {
	Title       string
	Notice      string
	Saved       []models.Document
	Uploads     []models.Document
	Question    string
	HasResponse bool
	Answer      template.HTML
	Accept      string
}

func (h *Handler) Index(c *gin.Context) {
	st, err := h.currentSession(c)
	if err != nil {
		c.String(http.StatusInternalServerError, "failed to start session: %v", err)
		return
	}

	data := pageData{
		Title:       pageTitle,
		Notice:      st.Notice,
		Uploads:     st.Uploads,
		Question:    st.Question,
		HasResponse: st.HasResponse,
		Accept:      strings.Join(parser.SupportedExtensions, ","),
	}

	saved, err := h.chat.SavedDocuments(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("Error loading saved files")
		data.Notice = joinNotice(data.Notice, "Could not load saved files: "+err.Error())
	}
	data.Saved = saved

	if st.HasResponse {
		answer, err := renderMarkdown(st.Response)
		if err != nil {
			log.Warn().Err(err).Msg("Error rendering answer as markdown")
			answer = template.HTML(template.HTMLEscapeString(st.Response))
		}
		data.Answer = answer
	}

	// the notice is shown once
	h.sessions.ClearNotice(st.ID)

	c.HTML(http.StatusOK, "index.html", data)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "sessions": h.sessions.Len()})
}

func (h *Handler) Upload(c *gin.Context) {
	st, err := h.currentSession(c)
	if err != nil {
		c.String(http.StatusInternalServerError, "failed to start session: %v", err)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		st.Notice = "Upload failed: " + err.Error()
		h.finish(c, st)
		return
	}

	var (
		files    []chat.File
		rejected []models.UploadResult
	)
	for _, fh := range form.File["files"] {
		if h.maxFileBytes > 0 && fh.Size > h.maxFileBytes {
			rejected = append(rejected, models.UploadResult{
				Name:   fh.Filename,
				Format: parser.DetectFormat(fh.Filename).String(),
				Status: models.UploadFailed,
				Error:  fmt.Sprintf("file too large (max %d bytes)", h.maxFileBytes),
			})
			continue
		}
		data, err := readFormFile(fh)
		if err != nil {
			rejected = append(rejected, models.UploadResult{Name: fh.Filename, Status: models.UploadFailed, Error: err.Error()})
			continue
		}
		files = append(files, chat.File{Name: fh.Filename, Data: data})
	}

	results := append(h.chat.Upload(st, files), rejected...)
	st.Results = results
	st.Notice = uploadNotice(results)
	h.finish(c, st)
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *Handler) Save(c *gin.Context) {
	st, err := h.currentSession(c)
	if err != nil {
		c.String(http.StatusInternalServerError, "failed to start session: %v", err)
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		st.Notice = "Invalid file index: " + c.Param("index")
		h.finish(c, st)
		return
	}

	doc, err := h.chat.SaveForLater(c.Request.Context(), st, index)
	if err != nil {
		log.Error().Err(err).Int("index", index).Msg("Error saving file")
		st.Notice = "Could not save file: " + err.Error()
	} else {
		st.Notice = fmt.Sprintf("File '%s' saved for later!", doc.Name)
	}
	h.finish(c, st)
}

func (h *Handler) Ask(c *gin.Context) {
	st, err := h.currentSession(c)
	if err != nil {
		c.String(http.StatusInternalServerError, "failed to start session: %v", err)
		return
	}

	question := c.PostForm("question")
	res, err := h.chat.Ask(c.Request.Context(), st, question)
	switch {
	case err != nil:
		log.Error().Err(err).Msg("Error answering question")
		st.Question = question
		st.Notice = failureNotice(err)
	case res != nil:
		st.Question = question
		if res.Truncated {
			st.Notice = "The documents were too long and were shortened before asking."
		}
	}
	h.finish(c, st)
}

func (h *Handler) Reset(c *gin.Context) {
	if id, err := c.Cookie(sessionCookie); err == nil {
		h.sessions.Reset(id)
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// finish stores the session and sends the browser back to the page.
func (h *Handler) finish(c *gin.Context, st *session.State) {
	h.sessions.Update(st)
	c.Redirect(http.StatusSeeOther, "/")
}

func uploadNotice(results []models.UploadResult) string {
	if len(results) == 0 {
		return "No files selected."
	}
	var accepted bool
	var details string
	for _, r := range results {
		switch r.Status {
		case models.UploadAccepted:
			accepted = true
		case models.UploadUnsupported:
			details = joinNotice(details, fmt.Sprintf("Skipped %s: unsupported format.", r.Name))
		case models.UploadEmpty:
			details = joinNotice(details, fmt.Sprintf("Skipped %s: no text found.", r.Name))
		case models.UploadFailed:
			details = joinNotice(details, fmt.Sprintf("Could not read %s: %s.", r.Name, r.Error))
		}
	}
	if accepted {
		return joinNotice("Files uploaded successfully!", details)
	}
	return details
}

func failureNotice(err error) string {
	switch {
	case models.IsKind(err, models.KindModel):
		return "The model request failed: " + err.Error()
	case models.IsKind(err, models.KindStoreRead):
		return "Could not load saved files: " + err.Error()
	default:
		return "Something went wrong: " + err.Error()
	}
}

func joinNotice(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}
