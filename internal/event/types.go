package event

// PermissionDecisionData is the data for permission.granted and
// permission.denied events.
type PermissionDecisionData struct {
	Command   string `json:"command"`
	SurfaceID string `json:"surfaceID"`
	Code      string `json:"code,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// CommandInvokedData is the data for command.invoked events.
type CommandInvokedData struct {
	InvocationID string `json:"invocationID"`
	Command      string `json:"command"`
	SurfaceID    string `json:"surfaceID"`
	Deferred     bool   `json:"deferred,omitempty"`
}

// CommandFailedData is the data for command.failed events.
type CommandFailedData struct {
	InvocationID string `json:"invocationID"`
	Command      string `json:"command"`
	SurfaceID    string `json:"surfaceID"`
	Code         string `json:"code"`
	Message      string `json:"message"`
}

// DeferredSettledData is the data for deferred.resolved and
// deferred.rejected events.
type DeferredSettledData struct {
	DeferredID string `json:"deferredID"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message,omitempty"`
}
