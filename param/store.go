package param

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Kaijun101/mavros/errors"
	"github.com/Kaijun101/mavros/metric"
)

// Logger is the minimal logging interface the store uses
type Logger interface {
	Printf(format string, v ...any)
	Errorf(format string, v ...any)
	Debugf(format string, v ...any)
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...any) {}
func (noopLogger) Errorf(string, ...any) {}
func (noopLogger) Debugf(string, ...any) {}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithTimeout sets the per-call timeout for remote operations
func WithTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the store logger
func WithLogger(l Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics attaches metrics recording to the store
func WithMetrics(m *metric.Metrics) StoreOption {
	return func(s *Store) { s.metrics = m }
}

// WithSubjects overrides the derived subject set, for tests or non-standard
// namespaces.
func WithSubjects(subjects Subjects) StoreOption {
	return func(s *Store) { s.subjects = subjects }
}

// WithTarget sets the vehicle addressing recorded in saved parameter files
func WithTarget(system, component int) StoreOption {
	return func(s *Store) {
		if system > 0 {
			s.targetSystem = system
		}
		if component > 0 {
			s.targetComponent = component
		}
	}
}

// Store is a local cache of vehicle parameters kept in sync with the remote
// end. Reads are served from the cache; writes go through the transport and
// update the cache optimistically, with change events reconciling any drift.
type Store struct {
	transport Transport
	subjects  Subjects
	timeout   time.Duration
	logger    Logger
	metrics   *metric.Metrics

	targetSystem    int
	targetComponent int

	mu       sync.RWMutex
	params   map[string]Value
	lastPull time.Time
	sub      Subscription
}

// NewStore creates a store over the given transport, deriving subjects from
// namespace.
func NewStore(t Transport, namespace string, opts ...StoreOption) *Store {
	s := &Store{
		transport:       t,
		subjects:        DefaultSubjects(namespace),
		timeout:         DefaultTimeout,
		logger:          noopLogger{},
		params:          make(map[string]Value),
		targetSystem:    1,
		targetComponent: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start subscribes to parameter change events and performs the initial pull.
// The subscription is established first so no event published during the pull
// is lost.
func (s *Store) Start(ctx context.Context) error {
	sub, err := s.transport.Subscribe(s.subjects.Event, s.handleEvent)
	if err != nil {
		return errors.WrapTransient(
			fmt.Errorf("%s: %w", err, errors.ErrSubscriptionFailed),
			"param", "Start", "subscribe to events")
	}
	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()

	if _, err := s.Pull(ctx, false); err != nil {
		// A failed start must not leak the subscription: the caller has no
		// store handle to unsubscribe with.
		if cerr := s.Close(); cerr != nil {
			s.logger.Errorf("param: unsubscribing after failed initial pull: %v", cerr)
		}
		return err
	}
	return nil
}

// Pull refreshes the whole cache from the remote end: trigger a pull, list
// every name, fetch every value, then replace the cache in one swap. A failed
// pull leaves the previous cache intact. It returns the number of parameters
// now cached.
func (s *Store) Pull(ctx context.Context, force bool) (int, error) {
	start := time.Now()

	n, err := s.pull(ctx, force)
	if err != nil {
		s.recordPull("failure", time.Since(start))
		if s.metrics != nil {
			s.metrics.RecordCallError("pull")
		}
		return 0, err
	}

	s.recordPull("success", time.Since(start))
	s.logger.Debugf("param: pulled %d parameters in %s", n, time.Since(start))
	return n, nil
}

func (s *Store) pull(ctx context.Context, force bool) (int, error) {
	if _, err := CallPull(ctx, s.transport, s.subjects, s.timeout, force); err != nil {
		return 0, err
	}

	names, err := CallListParameters(ctx, s.transport, s.subjects, s.timeout, nil)
	if err != nil {
		return 0, err
	}

	params := make(map[string]Value, len(names))
	if len(names) > 0 {
		values, err := CallGetParameters(ctx, s.transport, s.subjects, s.timeout, names)
		if err != nil {
			return 0, err
		}
		for name, v := range values {
			params[name] = v
		}
	}

	s.mu.Lock()
	s.params = params
	s.lastPull = time.Now()
	s.mu.Unlock()

	return len(params), nil
}

// Get returns the cached value of a parameter
func (s *Store) Get(name string) (Value, error) {
	s.mu.RLock()
	v, ok := s.params[name]
	s.mu.RUnlock()

	if !ok {
		return Value{}, errors.WrapInvalid(
			fmt.Errorf("%s: %w", name, errors.ErrParamNotFound),
			"param", "Get", "look up parameter")
	}
	return v, nil
}

// Set writes one parameter on the remote end and updates the cache
// optimistically: the local entry is overwritten whenever the call itself
// succeeds, even if the remote end rejected the value. A rejection is
// reported in the returned SetResult and reconciled by the event stream
// (the remote end keeps announcing its actual value).
func (s *Store) Set(ctx context.Context, name string, value Value) (SetResult, error) {
	results, err := CallSetParameters(ctx, s.transport, s.subjects, s.timeout,
		[]Parameter{{Name: name, Value: value}})
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordSet("error")
			s.metrics.RecordCallError("set_parameters")
		}
		return SetResult{}, err
	}

	s.mu.Lock()
	s.params[name] = value
	s.mu.Unlock()

	result := results[name]
	if !result.Successful {
		if s.metrics != nil {
			s.metrics.RecordSet("rejected")
		}
		s.logger.Printf("param: set %s rejected: %s", name, result.Reason)
		return result, nil
	}

	if s.metrics != nil {
		s.metrics.RecordSet("success")
	}
	return result, nil
}

// handleEvent applies a remote parameter change to the cache. Events
// overwrite unconditionally; the remote end is the source of truth.
func (s *Store) handleEvent(data []byte) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		s.logger.Errorf("param: dropping malformed event: %v", err)
		return
	}
	if ev.Value.Kind() == KindUnknown {
		s.logger.Debugf("param: dropping event for %s with unrecognized value kind", ev.ParamID)
		return
	}

	s.mu.Lock()
	s.params[ev.ParamID] = ev.Value
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordEvent()
	}
	s.logger.Debugf("param: event %s = %s", ev.ParamID, ev.Value.Text())
}

// Snapshot returns the cached parameters sorted by name
func (s *Store) Snapshot() []Parameter {
	s.mu.RLock()
	params := make([]Parameter, 0, len(s.params))
	for name, v := range s.params {
		params = append(params, Parameter{Name: name, Value: v})
	}
	s.mu.RUnlock()

	sort.Slice(params, func(i, j int) bool { return params[i].Name < params[j].Name })
	return params
}

// Replace overwrites the whole cache with the given parameters, for loading
// from a file.
func (s *Store) Replace(params []Parameter) {
	next := make(map[string]Value, len(params))
	for _, p := range params {
		next[p.Name] = p.Value
	}

	s.mu.Lock()
	s.params = next
	s.mu.Unlock()
}

// Names returns the cached parameter names sorted
func (s *Store) Names() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.params))
	for name := range s.params {
		names = append(names, name)
	}
	s.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Len returns the number of cached parameters
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.params)
}

// Target returns the vehicle addressing used when saving parameter files
func (s *Store) Target() (system, component int) {
	return s.targetSystem, s.targetComponent
}

// LastPull returns when the cache was last replaced by a pull
func (s *Store) LastPull() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastPull
}

// Close stops the event subscription. The cache stays readable.
func (s *Store) Close() error {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub == nil {
		return nil
	}
	if err := sub.Unsubscribe(); err != nil {
		return errors.Wrap(err, "param", "Close", "unsubscribe")
	}
	return nil
}

func (s *Store) recordPull(status string, d time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordPull(status, d)
	}
}
