package responses

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"obsp-workers/internal/common/logger"
	"obsp-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScheduler records callbacks and fires them on demand.
type fakeScheduler struct {
	mu    sync.Mutex
	tasks []*fakeTask
}

type fakeTask struct {
	delay   time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTask) Stop() bool {
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

func (f *fakeScheduler) AfterFunc(d time.Duration, fn func()) Stopper {
	f.mu.Lock()
	defer f.mu.Unlock()
	task := &fakeTask{delay: d, fn: fn}
	f.tasks = append(f.tasks, task)
	return task
}

// fireAll runs every scheduled callback, including stopped ones, the way a
// timer that already expired would race with Stop.
func (f *fakeScheduler) fireAll() {
	f.mu.Lock()
	tasks := append([]*fakeTask(nil), f.tasks...)
	f.mu.Unlock()
	for _, task := range tasks {
		task.fn()
	}
}

func (f *fakeScheduler) active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, task := range f.tasks {
		if !task.stopped {
			n++
		}
	}
	return n
}

type recorder struct {
	mu    sync.Mutex
	calls []models.Responses
}

func (r *recorder) notify(snapshot models.Responses) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, snapshot)
}

func checkboxSchema() *models.Schema {
	return &models.Schema{Phases: []models.Phase{{
		ID: "p1",
		Fields: []models.Field{
			{ID: "addons", Type: models.FieldCheckbox, Options: []models.Option{{Text: "A"}, {Text: "B"}}},
			{ID: "name", Type: models.FieldText},
		},
	}}}
}

func TestStore_SetValueReplacesAndNormalizes(t *testing.T) {
	store := NewStore(checkboxSchema(), nil)
	assert.False(t, store.Touched())

	store.SetValue("addons", []interface{}{"A", "B"})
	store.SetValue("addons", []string{"B"})
	v, ok := store.Get("addons")
	require.True(t, ok)
	assert.Equal(t, []string{"B"}, v, "arrays are replaced, not merged")

	store.SetValue("addons", nil)
	v, _ = store.Get("addons")
	assert.Equal(t, []string{}, v)

	store.SetValue("addons", "A")
	v, _ = store.Get("addons")
	assert.Equal(t, []string{"A"}, v)

	store.SetValue("name", "Acme")
	assert.True(t, store.Touched())
}

func TestStore_GetAllIsACopy(t *testing.T) {
	store := NewStore(checkboxSchema(), nil)
	store.SetValue("addons", []string{"A"})

	snapshot := store.GetAll()
	snapshot["addons"].([]string)[0] = "mutated"
	snapshot["name"] = "added"

	v, _ := store.Get("addons")
	assert.Equal(t, []string{"A"}, v)
	_, ok := store.Get("name")
	assert.False(t, ok)
}

func TestStore_SeedDoesNotTouch(t *testing.T) {
	store := NewStore(checkboxSchema(), nil)
	store.Seed(models.Responses{"addons": []interface{}{"B"}, "name": "Draft Co"})

	assert.False(t, store.Touched())
	assert.Equal(t, models.Responses{"addons": []string{"B"}, "name": "Draft Co"}, store.GetAll())
}

func TestDebouncer_DeliversLatestSnapshotOnce(t *testing.T) {
	sched := &fakeScheduler{}
	rec := &recorder{}
	deb := NewDebouncer(500*time.Millisecond, sched, rec.notify, logger.NewTestLogger(t))
	store := NewStore(checkboxSchema(), deb)

	store.SetValue("name", "A")
	store.SetValue("name", "Ac")
	store.SetValue("name", "Acme")

	assert.Equal(t, 1, sched.active(), "each write cancels the previous token")
	assert.True(t, deb.Pending())

	sched.fireAll()

	require.Len(t, rec.calls, 1)
	assert.Equal(t, "Acme", rec.calls[0]["name"])
	assert.False(t, deb.Pending())
	assert.Equal(t, 500*time.Millisecond, sched.tasks[0].delay)
}

func TestDebouncer_Flush(t *testing.T) {
	sched := &fakeScheduler{}
	rec := &recorder{}
	deb := NewDebouncer(time.Second, sched, rec.notify, logger.NewTestLogger(t))

	assert.False(t, deb.Flush(), "nothing pending")

	deb.Trigger(models.Responses{"name": "x"})
	assert.True(t, deb.Flush())
	require.Len(t, rec.calls, 1)

	sched.fireAll()
	assert.Len(t, rec.calls, 1, "timer after flush is stale")
}

func TestDebouncer_CancelDropsPending(t *testing.T) {
	sched := &fakeScheduler{}
	rec := &recorder{}
	deb := NewDebouncer(time.Second, sched, rec.notify, logger.NewTestLogger(t))

	deb.Trigger(models.Responses{"name": "stale"})
	deb.Cancel()
	sched.fireAll()

	assert.Empty(t, rec.calls)
	assert.False(t, deb.Pending())
	assert.False(t, deb.Flush())
}

func TestDebouncer_FiresAgainAfterNewBurst(t *testing.T) {
	sched := &fakeScheduler{}
	rec := &recorder{}
	deb := NewDebouncer(time.Second, sched, rec.notify, logger.NewTestLogger(t))

	deb.Trigger(models.Responses{"n": 1})
	sched.fireAll()
	deb.Trigger(models.Responses{"n": 2})
	sched.fireAll()

	require.Len(t, rec.calls, 2)
	assert.Equal(t, 2, rec.calls[1]["n"])
}

func TestDebouncer_ClockScheduler(t *testing.T) {
	done := make(chan models.Responses, 1)
	deb := NewDebouncer(10*time.Millisecond, nil, func(s models.Responses) { done <- s }, logger.NewNoOpLogger())

	deb.Trigger(models.Responses{"name": "first"})
	deb.Trigger(models.Responses{"name": "last"})

	select {
	case got := <-done:
		assert.Equal(t, "last", got["name"])
	case <-time.After(2 * time.Second):
		t.Fatal("debounced notification never fired")
	}
}

func TestDebouncer_ConcurrentWritersDeliverFinalState(t *testing.T) {
	sched := &fakeScheduler{}
	rec := &recorder{}
	deb := NewDebouncer(500*time.Millisecond, sched, rec.notify, logger.NewTestLogger(t))
	store := NewStore(checkboxSchema(), deb)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.SetValue("name", fmt.Sprintf("edit-%d", i))
		}(i)
	}
	wg.Wait()

	sched.fireAll()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.calls, 1)
	assert.Equal(t, store.GetAll(), rec.calls[0], "delivered snapshot matches the last write")
}
