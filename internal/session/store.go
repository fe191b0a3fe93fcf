package session

import "sync"

// State is the position of a user in the conversation.
type State string

const (
	StateIdle                     State = "idle"
	StateAwaitingLanguage         State = "awaiting_language"
	StateAwaitingInputChoice      State = "awaiting_input_choice"
	StateAwaitingFoodPhoto        State = "awaiting_food_photo"
	StateAwaitingFoodText         State = "awaiting_food_text"
	StateAwaitingCalories         State = "awaiting_calories"
	StateAwaitingDonationResponse State = "awaiting_donation_response"
)

// Key identifies a conversation.
type Key struct {
	UserID int64
	ChatID int64
}

// Store keeps the current state of every conversation in memory. A missing
// entry reads as StateIdle.
type Store struct {
	mu     sync.RWMutex
	states map[Key]State
}

func NewStore() *Store {
	return &Store{states: make(map[Key]State)}
}

func (s *Store) Get(key Key) State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if state, ok := s.states[key]; ok {
		return state
	}
	return StateIdle
}

func (s *Store) Set(key Key, state State) {
	if state == StateIdle {
		s.Clear(key)
		return
	}

	s.mu.Lock()
	s.states[key] = state
	s.mu.Unlock()
}

func (s *Store) Clear(key Key) {
	s.mu.Lock()
	delete(s.states, key)
	s.mu.Unlock()
}

// Len reports how many conversations are in a non-idle state.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}
