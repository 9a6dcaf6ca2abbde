package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/recentfiles/internal/models"
	"github.com/starford/recentfiles/internal/recentservice"
	"github.com/starford/recentfiles/internal/settings"
	"github.com/starford/recentfiles/internal/view"
)

// RecentItem is one entry of the rendered list (aliased from the view layer).
type RecentItem = view.Item

// RecentListResponse wraps the rendered list, most recent first.
type RecentListResponse struct {
	Files []RecentItem `json:"files" validate:"required"`
}

// OpenRequest asks to display a listed file.
type OpenRequest struct {
	Path string          `json:"path" example:"notes/hello.md" validate:"required"`
	Mode models.OpenMode `json:"mode" example:"new-tab" enums:"same-pane,new-tab,new-split"`
}

// Validate validates the request.
func (r OpenRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required),
	)
}

// OpenResult is returned after a successful open (aliased from the domain layer).
type OpenResult = recentservice.OpenResult

// PathEvent notifies that a vault file was opened or deleted.
type PathEvent struct {
	Path string `json:"path" example:"notes/hello.md" validate:"required"`
}

// Validate validates the event.
func (e PathEvent) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Path, validation.Required),
	)
}

// RenameEvent notifies that a vault file was moved.
type RenameEvent struct {
	OldPath string `json:"old_path" example:"notes/hello.md" validate:"required"`
	NewPath string `json:"new_path" example:"archive/hello.md" validate:"required"`
}

// Validate validates the event.
func (e RenameEvent) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.OldPath, validation.Required),
		validation.Field(&e.NewPath, validation.Required),
	)
}

// RecordedResponse reports whether a notification changed the list.
type RecordedResponse struct {
	Recorded bool `json:"recorded" example:"true"`
}

// SettingsView is the settings response (aliased from the settings layer).
type SettingsView = settings.View

// SettingsUpdate is the partial settings request (aliased from the settings layer).
type SettingsUpdate = settings.Update
