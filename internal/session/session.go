package session

// Session is the state shared by every dispatch of one crawl: the endpoint list with its rotation
// cursor and the counters.
type Session struct {
	Rotator *Rotator
	Metrics *Metrics
}

func New(addresses []string) (*Session, error) {
	endpoints, err := NewEndpoints(addresses)
	if err != nil {
		return nil, err
	}
	return &Session{
		Rotator: NewRotator(endpoints),
		Metrics: NewMetrics(endpoints),
	}, nil
}
