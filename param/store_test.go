package param

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kaijun101/mavros/errors"
)

// wireStore wires a fake transport with responders serving the given
// parameter table.
func wireStore(t *testing.T, table map[string]Value) (*Store, *fakeTransport) {
	t.Helper()

	ft := newFakeTransport()
	ft.respond(testSubjects.Pull, func([]byte) ([]byte, error) {
		return json.Marshal(PullResponse{Success: true, ParamReceived: uint32(len(table))})
	})
	ft.respond(testSubjects.List, func([]byte) ([]byte, error) {
		names := make([]string, 0, len(table))
		for name := range table {
			names = append(names, name)
		}
		return json.Marshal(ListResponse{Names: names})
	})
	ft.respond(testSubjects.Get, func(data []byte) ([]byte, error) {
		var req GetRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, err
		}
		values := make([]Value, len(req.Names))
		for i, name := range req.Names {
			values[i] = table[name]
		}
		return json.Marshal(GetResponse{Values: values})
	})
	ft.respond(testSubjects.Set, func(data []byte) ([]byte, error) {
		var req SetRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, err
		}
		results := make([]SetResult, len(req.Parameters))
		for i := range results {
			results[i] = SetResult{Successful: true}
		}
		return json.Marshal(SetResponse{Results: results})
	})

	return NewStore(ft, "mavros", WithTimeout(time.Second)), ft
}

func TestStoreStart(t *testing.T) {
	t.Run("subscribes then pulls", func(t *testing.T) {
		store, ft := wireStore(t, map[string]Value{"RTL_ALT": IntVal(1500)})
		defer store.Close()

		require.NoError(t, store.Start(context.Background()))

		assert.Equal(t, 1, store.Len())
		assert.Equal(t, 1, ft.requestCount(testSubjects.Pull))
		ft.mu.Lock()
		_, subscribed := ft.handlers[testSubjects.Event]
		ft.mu.Unlock()
		assert.True(t, subscribed, "event subscription must be live after Start")
	})

	t.Run("pull failure surfaces and tears down the subscription", func(t *testing.T) {
		ft := newFakeTransport()
		store := NewStore(ft, "mavros", WithTimeout(100*time.Millisecond))
		defer store.Close()

		err := store.Start(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrServiceUnavailable)
		assert.False(t, ft.subscribed(testSubjects.Event),
			"a failed Start must not leave the event subscription live")
	})

	t.Run("retried start does not stack subscriptions", func(t *testing.T) {
		ft := newFakeTransport()
		store := NewStore(ft, "mavros", WithTimeout(100*time.Millisecond))
		require.Error(t, store.Start(context.Background()))

		// The pull responders come up and the retry succeeds
		ft.respondJSON(testSubjects.Pull, PullResponse{Success: true})
		ft.respondJSON(testSubjects.List, ListResponse{Names: []string{"A"}})
		ft.respondJSON(testSubjects.Get, GetResponse{Values: []Value{IntVal(1)}})

		require.NoError(t, store.Start(context.Background()))
		defer store.Close()
		assert.True(t, ft.subscribed(testSubjects.Event))
	})
}

func TestStorePull(t *testing.T) {
	t.Run("replaces instead of merging", func(t *testing.T) {
		store, ft := wireStore(t, map[string]Value{"A": IntVal(1)})

		_, err := store.Pull(context.Background(), false)
		require.NoError(t, err)
		assert.Equal(t, []string{"A"}, store.Names())

		// the remote table changes entirely between pulls
		ft.respondJSON(testSubjects.List, ListResponse{Names: []string{"B"}})
		ft.respondJSON(testSubjects.Get, GetResponse{Values: []Value{IntVal(2)}})

		_, err = store.Pull(context.Background(), false)
		require.NoError(t, err)
		assert.Equal(t, []string{"B"}, store.Names())

		_, err = store.Get("A")
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrParamNotFound)
	})

	t.Run("failed pull keeps previous cache", func(t *testing.T) {
		store, ft := wireStore(t, map[string]Value{"A": IntVal(1)})

		n, err := store.Pull(context.Background(), false)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		ft.respond(testSubjects.List, func([]byte) ([]byte, error) {
			return json.Marshal(ListResponse{Error: "link down"})
		})

		_, err = store.Pull(context.Background(), false)
		require.Error(t, err)
		assert.Equal(t, []string{"A"}, store.Names())
	})

	t.Run("records last pull time", func(t *testing.T) {
		store, _ := wireStore(t, nil)
		assert.True(t, store.LastPull().IsZero())

		_, err := store.Pull(context.Background(), false)
		require.NoError(t, err)
		assert.False(t, store.LastPull().IsZero())
	})
}

func TestStoreGet(t *testing.T) {
	store, _ := wireStore(t, map[string]Value{"RTL_ALT": IntVal(1500)})
	_, err := store.Pull(context.Background(), false)
	require.NoError(t, err)

	v, err := store.Get("RTL_ALT")
	require.NoError(t, err)
	assert.Equal(t, IntVal(1500), v)

	_, err = store.Get("NO_SUCH")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrParamNotFound)
	assert.True(t, errors.IsInvalid(err))
}

func TestStoreSet(t *testing.T) {
	t.Run("accepted set updates the cache optimistically", func(t *testing.T) {
		store, _ := wireStore(t, map[string]Value{"RTL_ALT": IntVal(1500)})
		_, err := store.Pull(context.Background(), false)
		require.NoError(t, err)

		result, err := store.Set(context.Background(), "RTL_ALT", IntVal(2000))
		require.NoError(t, err)
		assert.True(t, result.Successful)

		v, err := store.Get("RTL_ALT")
		require.NoError(t, err)
		assert.Equal(t, IntVal(2000), v)
	})

	t.Run("rejected set reports the reason but stays optimistic", func(t *testing.T) {
		store, ft := wireStore(t, map[string]Value{"RTL_ALT": IntVal(1500)})
		_, err := store.Pull(context.Background(), false)
		require.NoError(t, err)

		ft.respondJSON(testSubjects.Set, SetResponse{Results: []SetResult{
			{Successful: false, Reason: "read-only"},
		}})

		result, err := store.Set(context.Background(), "RTL_ALT", IntVal(2000))
		require.NoError(t, err)
		assert.False(t, result.Successful)
		assert.Equal(t, "read-only", result.Reason)

		// The cache holds the optimistic value until an event reconciles it
		v, err := store.Get("RTL_ALT")
		require.NoError(t, err)
		assert.Equal(t, IntVal(2000), v)
	})

	t.Run("event reconciles a rejected set", func(t *testing.T) {
		store, ft := wireStore(t, map[string]Value{"RTL_ALT": IntVal(1500)})
		defer store.Close()
		require.NoError(t, store.Start(context.Background()))

		ft.respondJSON(testSubjects.Set, SetResponse{Results: []SetResult{
			{Successful: false, Reason: "clamped"},
		}})
		_, err := store.Set(context.Background(), "RTL_ALT", IntVal(99999))
		require.NoError(t, err)

		ev, err := json.Marshal(Event{ParamID: "RTL_ALT", Value: IntVal(8000)})
		require.NoError(t, err)
		ft.publish(testSubjects.Event, ev)

		v, err := store.Get("RTL_ALT")
		require.NoError(t, err)
		assert.Equal(t, IntVal(8000), v)
	})

	t.Run("transport failure surfaces", func(t *testing.T) {
		ft := newFakeTransport()
		store := NewStore(ft, "mavros", WithTimeout(100*time.Millisecond))

		_, err := store.Set(context.Background(), "RTL_ALT", IntVal(2000))
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrServiceUnavailable)
	})
}

func TestStoreEvents(t *testing.T) {
	t.Run("event overwrites the cache", func(t *testing.T) {
		store, ft := wireStore(t, map[string]Value{"RTL_ALT": IntVal(1500)})
		defer store.Close()
		require.NoError(t, store.Start(context.Background()))

		ev, err := json.Marshal(Event{ParamID: "RTL_ALT", Value: IntVal(3000)})
		require.NoError(t, err)
		ft.publish(testSubjects.Event, ev)

		v, err := store.Get("RTL_ALT")
		require.NoError(t, err)
		assert.Equal(t, IntVal(3000), v)
	})

	t.Run("event introduces a new parameter", func(t *testing.T) {
		store, ft := wireStore(t, nil)
		defer store.Close()
		require.NoError(t, store.Start(context.Background()))

		ev, err := json.Marshal(Event{ParamID: "NEW_PARAM", Value: RealVal(0.5)})
		require.NoError(t, err)
		ft.publish(testSubjects.Event, ev)

		v, err := store.Get("NEW_PARAM")
		require.NoError(t, err)
		assert.Equal(t, RealVal(0.5), v)
	})

	t.Run("event with unrecognized value kind is dropped", func(t *testing.T) {
		store, ft := wireStore(t, map[string]Value{"RTL_ALT": IntVal(1500)})
		defer store.Close()
		require.NoError(t, store.Start(context.Background()))

		ft.publish(testSubjects.Event, []byte(`{"param_id":"RTL_ALT","value":{"type":1}}`))

		v, err := store.Get("RTL_ALT")
		require.NoError(t, err)
		assert.Equal(t, IntVal(1500), v)
	})

	t.Run("malformed event is dropped", func(t *testing.T) {
		store, ft := wireStore(t, map[string]Value{"RTL_ALT": IntVal(1500)})
		defer store.Close()
		require.NoError(t, store.Start(context.Background()))

		ft.publish(testSubjects.Event, []byte("not json"))

		v, err := store.Get("RTL_ALT")
		require.NoError(t, err)
		assert.Equal(t, IntVal(1500), v)
	})
}

func TestStoreSnapshotAndReplace(t *testing.T) {
	store, _ := wireStore(t, map[string]Value{
		"Z_LAST":  IntVal(3),
		"A_FIRST": IntVal(1),
		"M_MID":   IntVal(2),
	})
	_, err := store.Pull(context.Background(), false)
	require.NoError(t, err)

	snap := store.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "A_FIRST", snap[0].Name)
	assert.Equal(t, "M_MID", snap[1].Name)
	assert.Equal(t, "Z_LAST", snap[2].Name)

	store.Replace([]Parameter{{Name: "ONLY", Value: IntVal(9)}})
	assert.Equal(t, []string{"ONLY"}, store.Names())
}

func TestStoreConcurrentAccess(t *testing.T) {
	store, ft := wireStore(t, map[string]Value{"COUNTER": IntVal(0)})
	defer store.Close()
	require.NoError(t, store.Start(context.Background()))

	// Writers race through both mutation paths: Set calls and incoming
	// events on the same name, with readers mixed in.
	var wg sync.WaitGroup
	for i := 0; i < 9; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				switch i % 3 {
				case 0:
					ev, _ := json.Marshal(Event{ParamID: "COUNTER", Value: IntVal(int64(j))})
					ft.publish(testSubjects.Event, ev)
				case 1:
					_, _ = store.Set(context.Background(), "COUNTER", IntVal(int64(1000+j)))
				default:
					_, _ = store.Get("COUNTER")
					_ = store.Snapshot()
				}
			}
		}(i)
	}
	wg.Wait()

	// Whichever writer won, the entry is intact: exactly one key, integer
	// kind, no torn value.
	assert.Equal(t, 1, store.Len())
	v, err := store.Get("COUNTER")
	require.NoError(t, err)
	assert.Equal(t, KindInteger, v.Kind())
}

func TestStoreTarget(t *testing.T) {
	store := NewStore(newFakeTransport(), "mavros")
	sys, comp := store.Target()
	assert.Equal(t, 1, sys)
	assert.Equal(t, 1, comp)

	store = NewStore(newFakeTransport(), "mavros", WithTarget(2, 3))
	sys, comp = store.Target()
	assert.Equal(t, 2, sys)
	assert.Equal(t, 3, comp)
}

func TestStoreClose(t *testing.T) {
	store, ft := wireStore(t, nil)
	require.NoError(t, store.Start(context.Background()))

	ft.mu.Lock()
	sub := ft.handlers[testSubjects.Event]
	ft.mu.Unlock()
	require.NotNil(t, sub)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "close is idempotent")
}
