package jsonfile

import (
	"teambot/entity"
	"time"
)

type invitesDoc struct {
	Invites map[string]*entity.InviteCode `json:"invites"`
}

func (s *Store) loadInvites() *invitesDoc {
	doc := &invitesDoc{}
	s.load(fileInvites, doc)
	if doc.Invites == nil {
		doc.Invites = make(map[string]*entity.InviteCode)
	}
	return doc
}

func (s *Store) CreateInviteCode(code *entity.InviteCode) error {
	if code == nil || code.Code == "" {
		return entity.ErrInvalidInput
	}
	s.muInvites.Lock()
	defer s.muInvites.Unlock()

	doc := s.loadInvites()
	doc.Invites[code.Code] = code
	return s.save(fileInvites, doc)
}

// UseInviteCode burns one use of a code and records who redeemed it.
// The check-and-increment runs under the store lock, so a code cannot be
// redeemed past its budget by racing requests.
func (s *Store) UseInviteCode(code string, chatId int64) (*entity.InviteCode, error) {
	s.muInvites.Lock()
	defer s.muInvites.Unlock()

	doc := s.loadInvites()
	inv, ok := doc.Invites[code]
	if !ok {
		return nil, entity.ErrNotFound
	}
	if inv.Exhausted() {
		return nil, entity.ErrInviteUsed
	}
	inv.UseCount++
	inv.UsedBy = chatId
	inv.UsedAt = time.Now().UTC()
	if err := s.save(fileInvites, doc); err != nil {
		return nil, err
	}
	return inv, nil
}
