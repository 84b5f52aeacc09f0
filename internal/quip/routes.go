package quip

import (
	"fmt"
	"strings"

	urlkit "github.com/goliatone/go-urlkit"
)

const (
	apiGroup = "api"

	routeFolder       = "folder"
	routeThread       = "thread"
	routeNewDocument  = "new_document"
	routeEditDocument = "edit_document"
	routeCurrentUser  = "current_user"
)

// routes builds API endpoints with go-urlkit.
type routes struct {
	manager *urlkit.RouteManager
}

func newRoutes(baseURL string) (*routes, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("quip: base url is required")
	}

	manager := urlkit.NewRouteManager(&urlkit.Config{
		Groups: []urlkit.GroupConfig{
			{
				Name:    apiGroup,
				BaseURL: baseURL,
				Paths: map[string]string{
					routeFolder:       "/1/folders/:id",
					routeThread:       "/1/threads/:id",
					routeNewDocument:  "/1/threads/new-document",
					routeEditDocument: "/1/threads/edit-document",
					routeCurrentUser:  "/1/users/current",
				},
			},
		},
	})

	r := &routes{manager: manager}
	if _, err := r.build(routeCurrentUser, nil); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *routes) build(route string, params map[string]any) (url string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("quip: route %q unavailable: %v", route, rec)
		}
	}()

	builder := r.manager.Group(apiGroup).Builder(route)
	for key, value := range params {
		builder.WithParam(key, value)
	}
	return builder.Build()
}
