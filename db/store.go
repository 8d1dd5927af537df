package db

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

const DefaultSlotKey = "peopleDB_v1"

// Store owns the ordered record list and mirrors every mutation into a
// single slot by rewriting the whole list.
type Store struct {
	mu         sync.Mutex
	slot       Slot
	key        string
	strict     bool
	pessoas    []Pessoa
	generation uint64
	searches   *SearchCache
}

type StoreOption func(*Store)

// WithKey changes the slot key the list is persisted under.
func WithKey(key string) StoreOption {
	return func(s *Store) { s.key = key }
}

// WithStrictLoad makes Load report ErrCorruptData instead of starting from
// an empty list when the slot holds unparseable data.
func WithStrictLoad(strict bool) StoreOption {
	return func(s *Store) { s.strict = strict }
}

// WithSearchCache answers repeated searches from cache until the next
// mutation.
func WithSearchCache(cache *SearchCache) StoreOption {
	return func(s *Store) { s.searches = cache }
}

func NewStore(slot Slot, opts ...StoreOption) *Store {
	s := &Store{slot: slot, key: DefaultSlotKey, pessoas: []Pessoa{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func seedPessoas() []Pessoa {
	return []Pessoa{
		{Id: GenerateId(), FirstName: "João", LastName: "Silva", Cpf: "12345678901", Address: "Rua A, 123 - João Pessoa, PB", Age: "34", Weight: "82"},
		{Id: GenerateId(), FirstName: "Maria", LastName: "Oliveira", Cpf: "98765432100", Address: "Av. B, 45 - Campina Grande, PB", Age: "28", Weight: "65"},
	}
}

// Load reads the slot into the store. An absent slot is seeded with two
// example records which are persisted right away.
func (s *Store) Load(ctx context.Context) ([]Pessoa, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, found, err := s.slot.Get(ctx, s.key)
	if err != nil {
		return nil, err
	}

	if !found || raw == "" {
		seed := seedPessoas()
		if err := s.write(ctx, seed); err != nil {
			return nil, err
		}
		s.replace(seed)
		log.Info().Str("key", s.key).Int("count", len(seed)).Msg("seeded empty slot")
		return clonePessoas(s.pessoas), nil
	}

	pessoas, err := DecodePessoas([]byte(raw))
	if err != nil {
		if s.strict {
			return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
		}
		log.Warn().Err(err).Str("key", s.key).Msg("discarding unparseable slot data")
		pessoas = []Pessoa{}
	}

	s.replace(pessoas)
	return clonePessoas(s.pessoas), nil
}

// Save overwrites the slot with pessoas and makes them the current list.
func (s *Store) Save(ctx context.Context, pessoas []Pessoa) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pessoas = clonePessoas(pessoas)
	if err := s.write(ctx, pessoas); err != nil {
		return err
	}
	s.replace(pessoas)
	return nil
}

func (s *Store) Create(ctx context.Context, input PessoaInput) (Pessoa, error) {
	pessoa := Pessoa{
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Cpf:       strings.TrimSpace(input.Cpf),
		Address:   strings.TrimSpace(input.Address),
		Age:       Quantity(strings.TrimSpace(string(input.Age))),
		Weight:    Quantity(strings.TrimSpace(string(input.Weight))),
		Photo:     input.Photo,
	}

	if err := validateNames(pessoa); err != nil {
		return Pessoa{}, err
	}
	if err := validatePhoto(pessoa.Photo); err != nil {
		return Pessoa{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pessoa.Id = GenerateId()

	next := append(clonePessoas(s.pessoas), pessoa)
	if err := s.write(ctx, next); err != nil {
		return Pessoa{}, err
	}
	s.replace(next)

	log.Info().Str("id", pessoa.Id).Msg("created pessoa")
	return pessoa, nil
}

// Update merges the provided patch fields over the record with id. A missing
// or empty photo keeps the stored one.
func (s *Store) Update(ctx context.Context, id string, patch PessoaPatch) (Pessoa, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return Pessoa{}, ErrPessoaNotFound
	}

	pessoa := s.pessoas[idx]
	mergeString(&pessoa.FirstName, patch.FirstName)
	mergeString(&pessoa.LastName, patch.LastName)
	mergeString(&pessoa.Cpf, patch.Cpf)
	mergeString(&pessoa.Address, patch.Address)
	mergeQuantity(&pessoa.Age, patch.Age)
	mergeQuantity(&pessoa.Weight, patch.Weight)
	if patch.Photo != nil && *patch.Photo != "" {
		if err := validatePhoto(*patch.Photo); err != nil {
			return Pessoa{}, err
		}
		pessoa.Photo = *patch.Photo
	}

	if err := validateNames(pessoa); err != nil {
		return Pessoa{}, err
	}

	next := clonePessoas(s.pessoas)
	next[idx] = pessoa
	if err := s.write(ctx, next); err != nil {
		return Pessoa{}, err
	}
	s.replace(next)

	log.Info().Str("id", id).Msg("updated pessoa")
	return pessoa, nil
}

// Delete removes the record with id. It reports false, without writing the
// slot, when no such record exists.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return false, nil
	}

	next := make([]Pessoa, 0, len(s.pessoas)-1)
	next = append(next, s.pessoas[:idx]...)
	next = append(next, s.pessoas[idx+1:]...)
	if err := s.write(ctx, next); err != nil {
		return false, err
	}
	s.replace(next)

	log.Info().Str("id", id).Msg("deleted pessoa")
	return true, nil
}

// ImportAll replaces the whole list without validating the records.
func (s *Store) ImportAll(ctx context.Context, pessoas []Pessoa) error {
	if err := s.Save(ctx, pessoas); err != nil {
		return err
	}

	log.Info().Int("count", len(pessoas)).Msg("imported pessoas")
	return nil
}

func (s *Store) ExportAll() []Pessoa {
	s.mu.Lock()
	defer s.mu.Unlock()

	return clonePessoas(s.pessoas)
}

func (s *Store) Get(id string) (Pessoa, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return Pessoa{}, false
	}
	return s.pessoas[idx], true
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.pessoas)
}

// Find runs Search over a snapshot of the current list, going through the
// search cache when one is configured.
func (s *Store) Find(query string) []Pessoa {
	s.mu.Lock()
	pessoas := clonePessoas(s.pessoas)
	generation := s.generation
	s.mu.Unlock()

	term := foldTerm(query)
	if s.searches == nil || term == "" {
		return Search(query, pessoas)
	}

	if cached, found := s.searches.get(generation, term); found {
		return cached
	}

	result := Search(query, pessoas)
	s.searches.set(generation, term, result)
	return result
}

// replace installs a new record list; the caller holds mu.
func (s *Store) replace(pessoas []Pessoa) {
	s.pessoas = pessoas
	s.generation++
}

func (s *Store) write(ctx context.Context, pessoas []Pessoa) error {
	data, err := EncodePessoas(pessoas)
	if err != nil {
		return fmt.Errorf("encode pessoas: %w", err)
	}

	if err := s.slot.Set(ctx, s.key, string(data)); err != nil {
		log.Error().Err(err).Str("key", s.key).Msg("error saving pessoas")
		return err
	}

	return nil
}

func (s *Store) indexOf(id string) int {
	for i, p := range s.pessoas {
		if p.Id == id {
			return i
		}
	}
	return -1
}

func validateNames(p Pessoa) error {
	if p.FirstName == "" || p.LastName == "" {
		return &ValidationError{Msg: "firstName and lastName are required"}
	}
	return nil
}

func validatePhoto(photo string) error {
	if photo != "" && !strings.HasPrefix(photo, "data:image/") {
		return &ValidationError{Msg: "photo must be an image data URI"}
	}
	return nil
}

func mergeString(dst *string, value *string) {
	if value != nil {
		*dst = strings.TrimSpace(*value)
	}
}

func mergeQuantity(dst *Quantity, value *Quantity) {
	if value != nil {
		*dst = Quantity(strings.TrimSpace(string(*value)))
	}
}

func clonePessoas(pessoas []Pessoa) []Pessoa {
	out := make([]Pessoa, len(pessoas))
	copy(out, pessoas)
	return out
}
