package handler

// RootPath is the base path of the admin API.
const RootPath = "/api/"

// ErrNilACDFatalLogMsg is the fatal log message when a handler is
// initialized with nil dependencies.
const ErrNilACDFatalLogMsg = "app, config and db cannot be nil"
