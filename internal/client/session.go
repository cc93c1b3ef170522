package client

import (
	"sync"

	"github.com/pribylovaa/agrichain-auth/internal/models"
)

// State — снимок клиентской сессии.
type State struct {
	User         *models.User
	Token        string
	RefreshToken string
	Loading      bool
	Error        string
}

// IsAuthenticated: сессия считается активной только при наличии обоих токенов.
func (s State) IsAuthenticated() bool {
	return s.Token != "" && s.RefreshToken != ""
}

// Session — единственный источник истины о входе пользователя на клиенте.
// Передаётся явно; записи защищены мьютексом, при гонке побеждает
// последний завершившийся запрос.
type Session struct {
	mu      sync.RWMutex
	st      State
	pending int
}

func NewSession() *Session {
	return &Session{}
}

// State возвращает копию текущего состояния.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.st
	if st.User != nil {
		u := *st.User
		st.User = &u
	}

	return st
}

func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.IsAuthenticated()
}

func (s *Session) tokens() (access, refresh string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Token, s.st.RefreshToken
}

// begin отмечает запуск асинхронного действия.
func (s *Session) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending++
	s.st.Loading = true
	s.st.Error = ""
}

func (s *Session) done() {
	if s.pending > 0 {
		s.pending--
	}
	s.st.Loading = s.pending > 0
}

// Переходы ниже меняют состояние и хранилище под одной блокировкой:
// порядок записей в Store совпадает с порядком переходов, поэтому
// сохранённая пара всегда равна той, что в памяти.

// fulfil устанавливает пользователя и пару токенов и сохраняет пару через save.
func (s *Session) fulfil(user *models.User, token, refresh string, save func(Tokens) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.done()
	s.st.User = user
	s.st.Token = token
	s.st.RefreshToken = refresh
	s.st.Error = ""

	return save(Tokens{Token: token, RefreshToken: refresh})
}

// updateTokens меняет пару, сохраняя пользователя.
func (s *Session) updateTokens(token, refresh string, save func(Tokens) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.done()
	s.st.Token = token
	s.st.RefreshToken = refresh
	s.st.Error = ""

	return save(Tokens{Token: token, RefreshToken: refresh})
}

func (s *Session) updateUser(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.done()
	s.st.User = user
	s.st.Error = ""
}

// reject очищает сессию и хранилище и запоминает сообщение об ошибке.
func (s *Session) reject(msg string, clear func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.done()
	s.st.User = nil
	s.st.Token = ""
	s.st.RefreshToken = ""
	s.st.Error = msg

	return clear()
}

// reset — полная очистка без сообщения об ошибке (logout).
func (s *Session) reset(clear func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st = State{Loading: s.pending > 0}
	return clear()
}

// restore поднимает пару из хранилища. Без любого из ключей хранилище очищается.
func (s *Session) restore(load func() (Tokens, error), clear func() error) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := load()
	if err != nil {
		return false, err
	}
	if t.Token == "" || t.RefreshToken == "" {
		return false, clear()
	}

	s.st.Token = t.Token
	s.st.RefreshToken = t.RefreshToken
	return true, nil
}
