package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"object-tracker/internal/domain"
)

// DefaultLimit caps listings when the caller does not supply one.
const DefaultLimit = 100

// In-memory stores keep development and unit tests lightweight. They
// intentionally favor clarity over performance.

type InMemoryEntityStore struct {
	mu         sync.RWMutex
	byID       map[string]domain.TrackedEntity
	byExternal map[string]string // external id → internal id
	order      []string          // insertion order for stable listings
}

func NewInMemoryEntityStore() *InMemoryEntityStore {
	return &InMemoryEntityStore{
		byID:       make(map[string]domain.TrackedEntity),
		byExternal: make(map[string]string),
	}
}

func (s *InMemoryEntityStore) Create(_ context.Context, entity domain.TrackedEntity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byExternal[entity.ExternalID]; exists {
		return ErrDuplicateExternalID
	}
	s.byID[entity.ID] = entity
	s.byExternal[entity.ExternalID] = entity.ID
	s.order = append(s.order, entity.ID)
	return nil
}

func (s *InMemoryEntityStore) FindByID(_ context.Context, id string) (domain.TrackedEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if entity, ok := s.byID[id]; ok {
		return entity, nil
	}
	return domain.TrackedEntity{}, ErrNotFound
}

func (s *InMemoryEntityStore) FindByExternalID(_ context.Context, externalID string) (domain.TrackedEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byExternal[externalID]; ok {
		return s.byID[id], nil
	}
	return domain.TrackedEntity{}, ErrNotFound
}

func (s *InMemoryEntityStore) List(_ context.Context, filter EntityFilter) ([]domain.TrackedEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	var out []domain.TrackedEntity
	skipped := 0
	for _, id := range s.order {
		entity := s.byID[id]
		if filter.Type != "" && entity.Type != filter.Type {
			continue
		}
		if filter.Source != "" && entity.SourceID != filter.Source {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, entity)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryEntityStore) Update(_ context.Context, entity domain.TrackedEntity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.byID[entity.ID]
	if !ok {
		return ErrNotFound
	}
	if current.ExternalID != entity.ExternalID {
		delete(s.byExternal, current.ExternalID)
		s.byExternal[entity.ExternalID] = entity.ID
	}
	s.byID[entity.ID] = entity
	return nil
}

func (s *InMemoryEntityStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entity, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	delete(s.byExternal, entity.ExternalID)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

type InMemorySensorStore struct {
	mu         sync.RWMutex
	byID       map[string]domain.Sensor
	byExternal map[string]string
	order      []string
}

func NewInMemorySensorStore() *InMemorySensorStore {
	return &InMemorySensorStore{
		byID:       make(map[string]domain.Sensor),
		byExternal: make(map[string]string),
	}
}

func (s *InMemorySensorStore) Create(_ context.Context, sensor domain.Sensor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byExternal[sensor.ExternalID]; exists {
		return ErrDuplicateExternalID
	}
	s.byID[sensor.ID] = sensor
	s.byExternal[sensor.ExternalID] = sensor.ID
	s.order = append(s.order, sensor.ID)
	return nil
}

func (s *InMemorySensorStore) FindByID(_ context.Context, id string) (domain.Sensor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sensor, ok := s.byID[id]; ok {
		return sensor, nil
	}
	return domain.Sensor{}, ErrNotFound
}

func (s *InMemorySensorStore) FindByExternalID(_ context.Context, externalID string) (domain.Sensor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byExternal[externalID]; ok {
		return s.byID[id], nil
	}
	return domain.Sensor{}, ErrNotFound
}

func (s *InMemorySensorStore) List(_ context.Context, filter SensorFilter) ([]domain.Sensor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	var out []domain.Sensor
	skipped := 0
	for _, id := range s.order {
		sensor := s.byID[id]
		if filter.Active != nil && sensor.Active != *filter.Active {
			continue
		}
		if filter.Type != "" && sensor.Type != filter.Type {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, sensor)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *InMemorySensorStore) Update(_ context.Context, sensor domain.Sensor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.byID[sensor.ID]
	if !ok {
		return ErrNotFound
	}
	if current.ExternalID != sensor.ExternalID {
		delete(s.byExternal, current.ExternalID)
		s.byExternal[sensor.ExternalID] = sensor.ID
	}
	s.byID[sensor.ID] = sensor
	return nil
}

func (s *InMemorySensorStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sensor, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	delete(s.byExternal, sensor.ExternalID)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

type InMemoryObservationStore struct {
	mu       sync.RWMutex
	byEntity map[string][]domain.Observation
}

func NewInMemoryObservationStore() *InMemoryObservationStore {
	return &InMemoryObservationStore{byEntity: make(map[string][]domain.Observation)}
}

func (s *InMemoryObservationStore) Append(_ context.Context, obs domain.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byEntity[obs.EntityID] = append(s.byEntity[obs.EntityID], obs)
	return nil
}

func (s *InMemoryObservationStore) ListByEntity(_ context.Context, entityID string, limit, offset int) ([]domain.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = DefaultLimit
	}
	history := append([]domain.Observation{}, s.byEntity[entityID]...)
	// Newest first, matching the REST history endpoint contract.
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Timestamp.After(history[j].Timestamp)
	})
	if offset >= len(history) {
		return nil, nil
	}
	history = history[offset:]
	if len(history) > limit {
		history = history[:limit]
	}
	return history, nil
}

type InMemoryValidationLogStore struct {
	mu      sync.RWMutex
	entries []domain.ValidationLog
}

func NewInMemoryValidationLogStore() *InMemoryValidationLogStore {
	return &InMemoryValidationLogStore{}
}

func (s *InMemoryValidationLogStore) Append(_ context.Context, entry domain.ValidationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *InMemoryValidationLogStore) FindByID(_ context.Context, id string) (domain.ValidationLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, entry := range s.entries {
		if entry.ID == id {
			return entry, nil
		}
	}
	return domain.ValidationLog{}, ErrNotFound
}

func (s *InMemoryValidationLogStore) List(_ context.Context, filter LogFilter) ([]domain.ValidationLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	var out []domain.ValidationLog
	skipped := 0
	// Newest first.
	for i := len(s.entries) - 1; i >= 0; i-- {
		entry := s.entries[i]
		if filter.Kind != "" && entry.Kind != filter.Kind {
			continue
		}
		if filter.EntityExternal != "" && entry.EntityExternal != filter.EntityExternal {
			continue
		}
		if filter.SensorExternal != "" && entry.SensorExternal != filter.SensorExternal {
			continue
		}
		if filter.Resolved != nil && entry.Resolved != *filter.Resolved {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, entry)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryValidationLogStore) SetResolved(_ context.Context, id string, resolved bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == id {
			s.entries[i].Resolved = resolved
			return nil
		}
	}
	return ErrNotFound
}

func (s *InMemoryValidationLogStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

type InMemorySourceStore struct {
	mu     sync.RWMutex
	byID   map[string]domain.Source
	byName map[string]string
	order  []string
}

func NewInMemorySourceStore() *InMemorySourceStore {
	return &InMemorySourceStore{
		byID:   make(map[string]domain.Source),
		byName: make(map[string]string),
	}
}

func (s *InMemorySourceStore) Create(_ context.Context, source domain.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byName[source.Name]; exists {
		return ErrDuplicateName
	}
	s.byID[source.ID] = source
	s.byName[source.Name] = source.ID
	s.order = append(s.order, source.ID)
	return nil
}

func (s *InMemorySourceStore) FindByID(_ context.Context, id string) (domain.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if source, ok := s.byID[id]; ok {
		return source, nil
	}
	return domain.Source{}, ErrNotFound
}

func (s *InMemorySourceStore) FindByName(_ context.Context, name string) (domain.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byName[name]; ok {
		return s.byID[id], nil
	}
	return domain.Source{}, ErrNotFound
}

func (s *InMemorySourceStore) SearchDescription(_ context.Context, needle string) (domain.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lowered := strings.ToLower(needle)
	for _, id := range s.order {
		source := s.byID[id]
		if strings.Contains(strings.ToLower(source.Description), lowered) {
			return source, nil
		}
	}
	return domain.Source{}, ErrNotFound
}

func (s *InMemorySourceStore) List(_ context.Context, limit, offset int) ([]domain.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = DefaultLimit
	}
	if offset >= len(s.order) {
		return nil, nil
	}
	var out []domain.Source
	for _, id := range s.order[offset:] {
		out = append(out, s.byID[id])
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *InMemorySourceStore) Update(_ context.Context, source domain.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.byID[source.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Name != source.Name {
		delete(s.byName, current.Name)
		s.byName[source.Name] = source.ID
	}
	s.byID[source.ID] = source
	return nil
}

func (s *InMemorySourceStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	source, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	delete(s.byName, source.Name)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

type InMemoryObjectTypeStore struct {
	mu     sync.RWMutex
	byID   map[string]domain.ObjectType
	byName map[string]string
	order  []string
}

func NewInMemoryObjectTypeStore() *InMemoryObjectTypeStore {
	return &InMemoryObjectTypeStore{
		byID:   make(map[string]domain.ObjectType),
		byName: make(map[string]string),
	}
}

func (s *InMemoryObjectTypeStore) Create(_ context.Context, objectType domain.ObjectType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byName[objectType.Name]; exists {
		return ErrDuplicateName
	}
	s.byID[objectType.ID] = objectType
	s.byName[objectType.Name] = objectType.ID
	s.order = append(s.order, objectType.ID)
	return nil
}

func (s *InMemoryObjectTypeStore) FindByID(_ context.Context, id string) (domain.ObjectType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if objectType, ok := s.byID[id]; ok {
		return objectType, nil
	}
	return domain.ObjectType{}, ErrNotFound
}

func (s *InMemoryObjectTypeStore) FindByName(_ context.Context, canonical string) (domain.ObjectType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byName[canonical]; ok {
		return s.byID[id], nil
	}
	return domain.ObjectType{}, ErrNotFound
}

func (s *InMemoryObjectTypeStore) List(_ context.Context, limit, offset int) ([]domain.ObjectType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = DefaultLimit
	}
	if offset >= len(s.order) {
		return nil, nil
	}
	var out []domain.ObjectType
	for _, id := range s.order[offset:] {
		out = append(out, s.byID[id])
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryObjectTypeStore) Update(_ context.Context, objectType domain.ObjectType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.byID[objectType.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Name != objectType.Name {
		delete(s.byName, current.Name)
		s.byName[objectType.Name] = objectType.ID
	}
	s.byID[objectType.ID] = objectType
	return nil
}

func (s *InMemoryObjectTypeStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	objectType, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	delete(s.byName, objectType.Name)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
