package jsonfile

import (
	"teambot/entity"
	"teambot/lib/ident"
	"time"
)

type groupsDoc struct {
	Groups map[string]*entity.Group `json:"groups"`
}

func (s *Store) loadGroups() *groupsDoc {
	doc := &groupsDoc{}
	s.load(fileGroups, doc)
	if doc.Groups == nil {
		doc.Groups = make(map[string]*entity.Group)
	}
	return doc
}

func (s *Store) Group(groupId string) (*entity.Group, error) {
	s.muGroups.Lock()
	defer s.muGroups.Unlock()

	doc := s.loadGroups()
	g, ok := doc.Groups[groupId]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return g, nil
}

func (s *Store) GroupByOwner(chatId int64) (*entity.Group, error) {
	s.muGroups.Lock()
	defer s.muGroups.Unlock()

	doc := s.loadGroups()
	for _, g := range doc.Groups {
		if g.OwnerChatId == chatId {
			return g, nil
		}
	}
	return nil, entity.ErrNotFound
}

func (s *Store) GroupsByMember(chatId int64) ([]*entity.Group, error) {
	s.muGroups.Lock()
	defer s.muGroups.Unlock()

	doc := s.loadGroups()
	var groups []*entity.Group
	for _, g := range doc.Groups {
		if g.IsMember(chatId) {
			groups = append(groups, g)
		}
	}
	return groups, nil
}

func (s *Store) CreateGroup(name string, ownerChatId int64) (*entity.Group, error) {
	s.muGroups.Lock()
	defer s.muGroups.Unlock()

	doc := s.loadGroups()
	for _, g := range doc.Groups {
		if g.OwnerChatId == ownerChatId {
			return nil, entity.ErrAlreadyOwner
		}
	}

	groupId, err := ident.New(ident.Group, func(candidate string) bool {
		_, taken := doc.Groups[candidate]
		return taken
	})
	if err != nil {
		return nil, err
	}
	g := &entity.Group{
		GroupId:     groupId,
		Name:        name,
		OwnerChatId: ownerChatId,
		Members:     []int64{ownerChatId},
		Pending:     []int64{},
		CreatedAt:   time.Now().UTC(),
	}
	if err = g.Validate(); err != nil {
		return nil, entity.ErrInvalidInput
	}
	doc.Groups[groupId] = g
	if err = s.save(fileGroups, doc); err != nil {
		return nil, err
	}
	return g, nil
}

// mutateGroup runs a transition against one group under the store lock and
// commits the whole document afterwards.
func (s *Store) mutateGroup(groupId string, fn func(*entity.Group) error) (*entity.Group, error) {
	s.muGroups.Lock()
	defer s.muGroups.Unlock()

	doc := s.loadGroups()
	g, ok := doc.Groups[groupId]
	if !ok {
		return nil, entity.ErrNotFound
	}
	if err := fn(g); err != nil {
		return nil, err
	}
	if err := s.save(fileGroups, doc); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *Store) RequestJoin(groupId string, chatId int64) (*entity.Group, error) {
	return s.mutateGroup(groupId, func(g *entity.Group) error {
		if g.IsMember(chatId) {
			return entity.ErrAlreadyMember
		}
		g.AddPending(chatId)
		return nil
	})
}

func (s *Store) ApproveJoin(groupId string, chatId int64) (*entity.Group, error) {
	return s.mutateGroup(groupId, func(g *entity.Group) error {
		g.AddMember(chatId)
		return nil
	})
}

func (s *Store) DenyJoin(groupId string, chatId int64) (*entity.Group, error) {
	return s.mutateGroup(groupId, func(g *entity.Group) error {
		g.RemovePending(chatId)
		return nil
	})
}

func (s *Store) AddMember(groupId string, chatId int64) (*entity.Group, error) {
	return s.mutateGroup(groupId, func(g *entity.Group) error {
		g.AddMember(chatId)
		return nil
	})
}

func (s *Store) RemoveMember(groupId string, chatId int64) (*entity.Group, error) {
	return s.mutateGroup(groupId, func(g *entity.Group) error {
		g.RemoveMember(chatId)
		return nil
	})
}
