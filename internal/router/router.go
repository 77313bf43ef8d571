package router

import (
	"errors"
	"html"

	"github.com/xaitan80/webserver/internal/formlog"
	"github.com/xaitan80/webserver/internal/headers"
	"github.com/xaitan80/webserver/internal/logger"
	"github.com/xaitan80/webserver/internal/request"
	"github.com/xaitan80/webserver/internal/response"
	"github.com/xaitan80/webserver/internal/server"
	"github.com/xaitan80/webserver/internal/static"
)

type Route int

const (
	RouteWelcome Route = iota
	RouteSubmit
	RouteStatic
)

func (rt Route) String() string {
	switch rt {
	case RouteWelcome:
		return "welcome"
	case RouteSubmit:
		return "submit"
	default:
		return "static"
	}
}

const (
	WelcomePage = "<html><head><title>Welcome to the Server</title></head>" +
		"<body><h1>Welcome to the Server</h1>" +
		"<p>The server is running successfully.</p>" +
		"<p>Click <a href=\"/contact.html\">here</a> to navigate to another page.</p>" +
		"</body></html>"

	NotFoundPage = "<html><head><title>404 Not Found</title></head>" +
		"<body><h1>404 Not Found</h1><p>The requested resource could not be found.</p></body></html>"

	SubmitFailedPage = "<html><head><title>500 Internal Server Error</title></head>" +
		"<body><h1>Submission Failed</h1><p>Your details could not be recorded. Please try again later.</p></body></html>"

	submittedHead = "<html><head><title>Contact Form Submitted</title></head>" +
		"<body><p>Below are the details submitted</p>"
	submittedTail = "<h1>Thank you for your submission!</h1></body></html>"
)

// Match picks the route for r. Matching is exact and case-sensitive.
func Match(r *request.Request) Route {
	switch {
	case r.Path == "":
		return RouteWelcome
	case r.RequestLine.Method == "POST" && r.Path == "submit":
		return RouteSubmit
	default:
		return RouteStatic
	}
}

type Router struct {
	files      *static.FileServer
	forms      *formlog.Logger
	legacyEcho bool
}

type Option func(*Router)

// WithLegacyEcho echoes submitted bodies without HTML escaping, byte for
// byte as older clients expect.
func WithLegacyEcho() Option {
	return func(rt *Router) { rt.legacyEcho = true }
}

// New returns a Router serving files and recording submissions to forms.
// The form log is hidden from files so submissions are never served back.
func New(files *static.FileServer, forms *formlog.Logger, opts ...Option) *Router {
	files.Hide(forms.Path())
	rt := &Router{files: files, forms: forms}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Factory returns a server.HandlerFactory that serves each document root
// through a Router sharing forms.
func Factory(forms *formlog.Logger, opts ...Option) server.HandlerFactory {
	return func(root string) (server.Handler, error) {
		files, err := static.New(root)
		if err != nil {
			return nil, err
		}
		return New(files, forms, opts...).Handle, nil
	}
}

// Handle implements server.Handler.
func (rt *Router) Handle(r *request.Request, w *response.Writer) *server.HandlerError {
	switch Match(r) {
	case RouteWelcome:
		writeHTML(w, response.StatusOK, []byte(WelcomePage))
		return nil
	case RouteSubmit:
		return rt.submit(r, w)
	default:
		return rt.serveFile(r, w)
	}
}

func (rt *Router) submit(r *request.Request, w *response.Writer) *server.HandlerError {
	entry, err := rt.forms.Record(r.Body)
	if err != nil {
		logger.Error("Failed to record form submission", "path", rt.forms.Path(), "error", err)
		return htmlError(response.StatusInternalServerError, SubmitFailedPage)
	}
	logger.Debug("Recorded form submission", "fields", len(entry.Fields))

	echo := r.Body
	if !rt.legacyEcho {
		echo = html.EscapeString(echo)
	}
	body := submittedHead + echo + submittedTail
	writeHTML(w, response.StatusOK, []byte(body))
	return nil
}

func (rt *Router) serveFile(r *request.Request, w *response.Writer) *server.HandlerError {
	data, err := rt.files.Read(r.Path)
	if err != nil {
		if errors.Is(err, static.ErrOutsideRoot) {
			logger.Warn("Blocked path outside document root", "path", r.Path)
		} else {
			logger.Debug("File not found", "path", r.Path, "error", err)
		}
		return htmlError(response.StatusNotFound, NotFoundPage)
	}
	writeHTML(w, response.StatusOK, data)
	return nil
}

// writeHTML writes a complete response. Write failures are recorded by w
// and reported once the connection is done.
func writeHTML(w *response.Writer, status response.StatusCode, body []byte) {
	_ = w.WriteResponse(status, nil, body)
}

func htmlError(status response.StatusCode, page string) *server.HandlerError {
	hdrs := headers.NewHeaders()
	hdrs.Set("Content-Type", response.ContentTypeHTML)
	hdrs.Set("Connection", "close")
	return &server.HandlerError{Status: status, Headers: hdrs, Body: []byte(page)}
}
