package run

// Call records one Run invocation on a MockRunner
type Call struct {
	Name string
	Args []string
}

// MockRunner implements Runner for testing.
// Each method can be configured with a custom function to control behavior.
type MockRunner struct {
	RunFunc      func(name string, args ...string) (Result, error)
	LookPathFunc func(name string) (string, error)
	Calls        []Call
}

// Run records the call and delegates to RunFunc when set
func (m *MockRunner) Run(name string, args ...string) (Result, error) {
	m.Calls = append(m.Calls, Call{Name: name, Args: args})
	if m.RunFunc != nil {
		return m.RunFunc(name, args...)
	}
	return Result{}, nil
}

// LookPath delegates to LookPathFunc when set; the default reports every
// tool as present
func (m *MockRunner) LookPath(name string) (string, error) {
	if m.LookPathFunc != nil {
		return m.LookPathFunc(name)
	}
	return "/usr/bin/" + name, nil
}

// Ensure MockRunner implements Runner interface
var _ Runner = (*MockRunner)(nil)
