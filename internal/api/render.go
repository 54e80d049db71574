package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/kaptinlin/jsonrepair"
	"github.com/tidwall/gjson"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/MikeSquared-Agency/convexport/internal/conversation"
	"github.com/MikeSquared-Agency/convexport/internal/flow"
	"github.com/MikeSquared-Agency/convexport/internal/render"
)

// maxRenderBody caps the size of one posted conversation.
const maxRenderBody = 32 << 20

// markdownToHTML keeps raw HTML so that section anchors survive conversion.
var markdownToHTML = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

// renderConversation handles POST /api/v1/render. The body is one conversation object;
// ?format=html converts the document to HTML and ?repair=true runs damaged
// JSON through jsonrepair first.
func (s *Server) renderConversation(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRenderBody))
	if err != nil {
		code := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			code = http.StatusRequestEntityTooLarge
		}
		writeError(w, code, fmt.Sprintf("read body: %v", err))
		return
	}

	if !gjson.ValidBytes(body) {
		if r.URL.Query().Get("repair") != "true" {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		fixed, err := jsonrepair.JSONRepair(string(body))
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("repair: %v", err))
			return
		}
		body = []byte(fixed)
	}

	rec, err := conversation.ParseRecord(gjson.ParseBytes(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	log := flow.SlogLogger(s.logger, "conversation_id", rec.ID)
	f := flow.ForRecord(rec, log).Build(rec)
	renderer := render.Renderer{Now: s.now, Logger: log}
	doc := renderer.Render(rec, f)

	w.Header().Set("X-Conversation-Policy", f.Policy)
	w.Header().Set("X-Conversation-Sections", fmt.Sprint(render.Sections(f)))

	switch format := r.URL.Query().Get("format"); format {
	case "", "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(doc)
	case "html":
		var buf bytes.Buffer
		if err := markdownToHTML.Convert(doc, &buf); err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("convert: %v", err))
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown format %q", format))
	}
}
