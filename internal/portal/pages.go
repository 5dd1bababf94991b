package portal

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/config"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/fault"
)

//go:embed templates/*.html
var templateFS embed.FS

const htmlContentType = "text/html; charset=UTF-8"

// messagePage fills the "message" template.
type messagePage struct {
	Title    string
	Message  string
	Class    string // ok, warn or error
	Details  []string
	Redirect bool
}

// renderer executes the embedded page templates.
type renderer struct {
	tpls *template.Template
}

func newRenderer() (*renderer, error) {
	tpls, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse portal templates: %w", err)
	}
	return &renderer{tpls: tpls}, nil
}

func (r *renderer) render(status int, name string, data any) (Response, error) {
	var buf bytes.Buffer
	if err := r.tpls.ExecuteTemplate(&buf, name, data); err != nil {
		return Response{}, fmt.Errorf("render %s: %w", name, err)
	}
	return Response{Status: status, ContentType: htmlContentType, Body: buf.Bytes()}, nil
}

// settingsForm renders the form prefilled with cfg. The password is included
// in plain text; the setup network is isolated and operator-only.
func (r *renderer) settingsForm(cfg config.Configuration) (Response, error) {
	return r.render(http.StatusOK, "form", cfg)
}

func (r *renderer) saved() (Response, error) {
	return r.render(http.StatusOK, "message", messagePage{
		Title:    "Settings Saved",
		Message:  "Settings saved! The device is restarting...",
		Class:    "ok",
		Redirect: true,
	})
}

func (r *renderer) missingFields(errs []error) (Response, error) {
	details := make([]string, 0, len(errs))
	for _, err := range errs {
		var fe *fault.Error
		if errors.As(err, &fe) {
			details = append(details, fe.Message)
			continue
		}
		details = append(details, err.Error())
	}
	return r.render(http.StatusBadRequest, "message", messagePage{
		Title:   "Missing Information",
		Message: "Error! Please fill in all fields.",
		Class:   "warn",
		Details: details,
	})
}

func (r *renderer) saveFailed() (Response, error) {
	return r.render(http.StatusInternalServerError, "message", messagePage{
		Title:   "Error",
		Message: "Error! Settings could not be saved. Please try again.",
		Class:   "error",
	})
}
