package generator

// Event types of the design tool. The set is closed.
const (
	EventSignup             = "signup"
	EventLogin              = "login"
	EventOpenFile           = "open_file"
	EventCreateFile         = "create_file"
	EventEditLayer          = "edit_layer"
	EventAddComment         = "add_comment"
	EventInviteCollaborator = "invite_collaborator"
	EventShareFile          = "share_file"
	EventExportDesign       = "export_design"
	EventCreateComponent    = "create_component"
	EventUsePlugin          = "use_plugin"
	EventVersionHistory     = "version_history"
	EventLogout             = "logout"
)

// FeatureOther is the catch-all feature for unmapped event types.
const FeatureOther = "other"

var eventTypes = []string{
	EventSignup, EventLogin, EventOpenFile, EventCreateFile,
	EventEditLayer, EventAddComment, EventInviteCollaborator,
	EventShareFile, EventExportDesign, EventCreateComponent,
	EventUsePlugin, EventVersionHistory, EventLogout,
}

var featureMap = map[string]string{
	EventOpenFile:           "file_open",
	EventCreateFile:         "file_create",
	EventEditLayer:          "editor",
	EventAddComment:         "comments",
	EventInviteCollaborator: "collaboration",
	EventShareFile:          "sharing",
	EventExportDesign:       "export",
	EventCreateComponent:    "components",
	EventUsePlugin:          "plugins",
	EventVersionHistory:     "versioning",
	EventLogin:              "auth",
	EventSignup:             "auth",
	EventLogout:             "auth",
}

var knownEventTypes = func() map[string]bool {
	m := make(map[string]bool, len(eventTypes))
	for _, e := range eventTypes {
		m[e] = true
	}
	return m
}()

// EventTypes returns the closed vocabulary in canonical order.
func EventTypes() []string {
	return append([]string(nil), eventTypes...)
}

// IsKnownEventType reports whether eventType belongs to the vocabulary.
func IsKnownEventType(eventType string) bool {
	return knownEventTypes[eventType]
}

// FeatureFor maps an event type to its product feature, or FeatureOther.
func FeatureFor(eventType string) string {
	if f, ok := featureMap[eventType]; ok {
		return f
	}
	return FeatureOther
}
