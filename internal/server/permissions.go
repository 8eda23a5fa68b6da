package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tierstore/tierstore/internal/notify"
)

type PermissionsOutput struct {
	Body struct {
		Granted map[string]bool `json:"granted" doc:"Grant state by permission name"`
		Missing []string        `json:"missing" doc:"Permissions still to request"`
		Scoped  bool            `json:"scoped" doc:"Scoped storage implies write access"`
	}
}

type UpdatePermissionsInput struct {
	Body map[string]bool `doc:"Request results keyed by permission name"`
}

type NotificationsOutput struct {
	Body struct {
		Notifications []notify.Notification `json:"notifications"`
	}
}

func (s *Server) permissionsOutput() *PermissionsOutput {
	out := &PermissionsOutput{}
	out.Body.Granted = s.grants.Snapshot()
	out.Body.Scoped = s.manager.ScopedStorage()
	out.Body.Missing = s.grants.Missing(out.Body.Scoped)
	if out.Body.Missing == nil {
		out.Body.Missing = []string{}
	}
	return out
}

func (s *Server) registerPermissions() {
	if s.grants != nil {
		huma.Register(s.api, huma.Operation{
			OperationID: "get-permissions",
			Method:      http.MethodGet,
			Path:        "/permissions",
			Summary:     "Show external storage permissions",
			Tags:        []string{"Permissions"},
		}, func(ctx context.Context, input *struct{}) (*PermissionsOutput, error) {
			return s.permissionsOutput(), nil
		})

		huma.Register(s.api, huma.Operation{
			OperationID: "update-permissions",
			Method:      http.MethodPut,
			Path:        "/permissions",
			Summary:     "Record permission request results",
			Tags:        []string{"Permissions"},
		}, func(ctx context.Context, input *UpdatePermissionsInput) (*PermissionsOutput, error) {
			s.grants.Apply(input.Body)
			return s.permissionsOutput(), nil
		})
	}

	if s.recorder != nil {
		huma.Register(s.api, huma.Operation{
			OperationID: "list-notifications",
			Method:      http.MethodGet,
			Path:        "/notifications",
			Summary:     "Recent user-facing notifications",
			Tags:        []string{"System"},
		}, func(ctx context.Context, input *struct{}) (*NotificationsOutput, error) {
			out := &NotificationsOutput{}
			out.Body.Notifications = s.recorder.All()
			return out, nil
		})
	}
}
