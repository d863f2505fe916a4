package factsys

// Observer receives Container events. It is the hook used by the metrics
// package; implementations must be safe for concurrent use and must not call
// back into the Container.
type Observer interface {
	// WriteAccepted is called after an accepted write reached the Fact.
	WriteAccepted(f *Fact)

	// WriteRejected is called when the validation policy rejects a write.
	WriteRejected(f *Fact, err error)

	// UnknownParameter is called for every loaded value that has no
	// registered metadata.
	UnknownParameter(componentID int, name string)

	// Reloaded is called after Reload or a watch update was applied.
	Reloaded()
}

type nopObserver struct{}

func (nopObserver) WriteAccepted(*Fact)          {}
func (nopObserver) WriteRejected(*Fact, error)   {}
func (nopObserver) UnknownParameter(int, string) {}
func (nopObserver) Reloaded()                    {}
