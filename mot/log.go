package mot

// Logf is the package-level diagnostic logger. It is muted by default;
// use SetLogger to route tracker lifecycle events somewhere useful.
var Logf func(format string, v ...interface{}) = func(string, ...interface{}) {}

// SetLogger replaces the package logger. Passing nil mutes it.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
