package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Configuration & wiring errors
// 12000-12999: Workflow & step errors
// 13000-13999: Docker & environment errors
// 14000-14999: Tracking & state errors
// 15000-15999: Judge & test-data errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalError ErrorCode = 10001
	InvalidParams ErrorCode = 10002
	NotFound      ErrorCode = 10003
	Timeout       ErrorCode = 10004

	// Filesystem errors (10100-10199)
	FileNotFound    ErrorCode = 10100
	FileReadFailed  ErrorCode = 10101
	FileWriteFailed ErrorCode = 10102
	PathInvalid     ErrorCode = 10103

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	RequiredFieldEmpty ErrorCode = 10302

	// ========== Configuration & Wiring Errors (11000-11999) ==========

	ConfigNotFound       ErrorCode = 11000
	ConfigPathUnknown    ErrorCode = 11001
	ConfigParseFailed    ErrorCode = 11002
	ServiceNotRegistered ErrorCode = 11100
	DriverNotRegistered  ErrorCode = 11101

	// ========== Workflow & Step Errors (12000-12999) ==========

	StepsNotFound     ErrorCode = 12000
	StepTypeMismatch  ErrorCode = 12001
	StepArityInvalid  ErrorCode = 12002
	StepTypeUnknown   ErrorCode = 12003
	RequestInvalid    ErrorCode = 12100
	RequestDoubleExec ErrorCode = 12101
	CompositeInvalid  ErrorCode = 12102
	ExecutionFailed   ErrorCode = 12200
	ExecutionTimeout  ErrorCode = 12201

	// ========== Docker & Environment Errors (13000-13999) ==========

	DockerCommandFailed   ErrorCode = 13000
	DockerBuildFailed     ErrorCode = 13001
	DockerfileUnavailable ErrorCode = 13002
	ContainerNotFound     ErrorCode = 13003
	WorkspaceUnresolved   ErrorCode = 13100

	// ========== Tracking & State Errors (14000-14999) ==========

	StateLoadFailed  ErrorCode = 14000
	StateSaveFailed  ErrorCode = 14001
	TrackingFailed   ErrorCode = 14100
	RepositoryFailed ErrorCode = 14101

	// ========== Judge & Test-Data Errors (15000-15999) ==========

	JudgeRequestFailed  ErrorCode = 15000
	TokenExpired        ErrorCode = 15001
	TokenInvalid        ErrorCode = 15002
	TestDataFetchFailed ErrorCode = 15100
)

// codeMessages maps error codes to their default messages
var codeMessages = map[ErrorCode]string{
	Success:       "success",
	InternalError: "internal error",
	InvalidParams: "invalid parameters",
	NotFound:      "not found",
	Timeout:       "operation timed out",

	FileNotFound:    "file not found",
	FileReadFailed:  "file read failed",
	FileWriteFailed: "file write failed",
	PathInvalid:     "invalid path",

	ValidationFailed:   "validation failed",
	InvalidFormat:      "invalid format",
	RequiredFieldEmpty: "required field is empty",

	ConfigNotFound:       "configuration not found",
	ConfigPathUnknown:    "configuration path not resolvable",
	ConfigParseFailed:    "configuration parse failed",
	ServiceNotRegistered: "service not registered",
	DriverNotRegistered:  "driver not registered",

	StepsNotFound:     "workflow steps not found",
	StepTypeMismatch:  "step type mismatch",
	StepArityInvalid:  "step has wrong number of arguments",
	StepTypeUnknown:   "unknown step type",
	RequestInvalid:    "invalid request",
	RequestDoubleExec: "request already executed",
	CompositeInvalid:  "invalid composite element",
	ExecutionFailed:   "execution failed",
	ExecutionTimeout:  "execution timed out",

	DockerCommandFailed:   "docker command failed",
	DockerBuildFailed:     "docker image build failed",
	DockerfileUnavailable: "dockerfile content unavailable",
	ContainerNotFound:     "container not found",
	WorkspaceUnresolved:   "workspace root not resolvable",

	StateLoadFailed:  "state load failed",
	StateSaveFailed:  "state save failed",
	TrackingFailed:   "tracking failed",
	RepositoryFailed: "repository operation failed",

	JudgeRequestFailed:  "judge request failed",
	TokenExpired:        "token expired",
	TokenInvalid:        "token invalid",
	TestDataFetchFailed: "test data fetch failed",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := codeMessages[c]; ok {
		return msg
	}
	return "unknown error"
}
