package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type typingState struct {
	mu     sync.Mutex
	aud    Audience
	typers map[uuid.UUID]*time.Timer
}

// TypingTracker хранит текущий набор печатающих по аудитории.
// Запись протухает сама, если клиент так и не прислал stop,
// оборвался или молча бросил набор.
type TypingTracker struct {
	mu        sync.Mutex
	audiences map[string]*typingState
	expiry    time.Duration

	// onExpire вызывается при протухании записи по таймеру,
	// уже после её удаления из набора
	onExpire func(aud Audience, userID uuid.UUID)
}

func NewTypingTracker(expiry time.Duration, onExpire func(aud Audience, userID uuid.UUID)) *TypingTracker {
	return &TypingTracker{
		audiences: make(map[string]*typingState),
		expiry:    expiry,
		onExpire:  onExpire,
	}
}

func (t *TypingTracker) state(aud Audience) *typingState {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.audiences[aud.Key()]
	if !ok {
		st = &typingState{aud: aud, typers: make(map[uuid.UUID]*time.Timer)}
		t.audiences[aud.Key()] = st
	}
	return st
}

// Start отмечает пользователя печатающим. Возвращает false, если он
// уже был в наборе - тогда повторную рассылку делать не нужно,
// только сдвигается таймер протухания.
func (t *TypingTracker) Start(aud Audience, userID uuid.UUID) bool {
	st := t.state(aud)
	st.mu.Lock()
	defer st.mu.Unlock()

	if timer, ok := st.typers[userID]; ok {
		timer.Reset(t.expiry)
		return false
	}
	st.typers[userID] = time.AfterFunc(t.expiry, func() {
		t.expire(aud, userID)
	})
	return true
}

// Stop снимает отметку. Возвращает false, если пользователь не печатал.
func (t *TypingTracker) Stop(aud Audience, userID uuid.UUID) bool {
	st := t.state(aud)
	st.mu.Lock()
	defer st.mu.Unlock()

	timer, ok := st.typers[userID]
	if !ok {
		return false
	}
	timer.Stop()
	delete(st.typers, userID)
	return true
}

// Typers возвращает снимок печатающих в аудитории
func (t *TypingTracker) Typers(aud Audience) []uuid.UUID {
	st := t.state(aud)
	st.mu.Lock()
	defer st.mu.Unlock()

	typers := make([]uuid.UUID, 0, len(st.typers))
	for userID := range st.typers {
		typers = append(typers, userID)
	}
	return typers
}

// ClearUser снимает отметки пользователя во всех аудиториях.
// Вызывается при обрыве последнего соединения.
func (t *TypingTracker) ClearUser(userID uuid.UUID) []Audience {
	t.mu.Lock()
	states := make([]*typingState, 0, len(t.audiences))
	for _, st := range t.audiences {
		states = append(states, st)
	}
	t.mu.Unlock()

	var cleared []Audience
	for _, st := range states {
		st.mu.Lock()
		if timer, ok := st.typers[userID]; ok {
			timer.Stop()
			delete(st.typers, userID)
			cleared = append(cleared, st.aud)
		}
		st.mu.Unlock()
	}
	return cleared
}

func (t *TypingTracker) expire(aud Audience, userID uuid.UUID) {
	st := t.state(aud)
	st.mu.Lock()
	_, ok := st.typers[userID]
	if ok {
		delete(st.typers, userID)
	}
	st.mu.Unlock()

	if ok && t.onExpire != nil {
		t.onExpire(aud, userID)
	}
}
