package session

// Rotator hands out endpoints in a fixed cyclic order. The cursor lives for the whole crawl,
// so retries of one term and the first attempt of the next term share the same sequence.
// The first call returns the first configured endpoint, not the second one.
type Rotator struct {
	endpoints []Endpoint
	cursor    int
}

func NewRotator(endpoints []Endpoint) *Rotator {
	return &Rotator{endpoints: endpoints}
}

func (r *Rotator) Next() Endpoint {
	ep := r.endpoints[r.cursor]
	r.cursor = (r.cursor + 1) % len(r.endpoints)
	return ep
}

func (r *Rotator) Len() int {
	return len(r.endpoints)
}

func (r *Rotator) Endpoints() []Endpoint {
	return r.endpoints
}
