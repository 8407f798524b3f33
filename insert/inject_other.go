//go:build !darwin

package insert

type stubInjector struct{}

func newInjector() injector { return stubInjector{} }

func (stubInjector) typeText(string) error { return ErrUnsupported }

func (stubInjector) pressPaste() error { return ErrUnsupported }
