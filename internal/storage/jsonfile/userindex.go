package jsonfile

import (
	"strings"
	"teambot/entity"
)

// contact is what the index remembers about a chat, so the reverse maps can
// be cleaned up on the next upsert.
type contact struct {
	Username string `json:"username"`
	Phone    string `json:"phone"`
}

type indexDoc struct {
	ByUsername map[string]int64   `json:"by_username"`
	ByPhone    map[string]int64   `json:"by_phone"`
	ByChat     map[string]contact `json:"by_chat"`
}

func (s *Store) loadIndex() *indexDoc {
	doc := &indexDoc{}
	s.load(fileIndex, doc)
	if doc.ByUsername == nil {
		doc.ByUsername = make(map[string]int64)
	}
	if doc.ByPhone == nil {
		doc.ByPhone = make(map[string]int64)
	}
	if doc.ByChat == nil {
		doc.ByChat = make(map[string]contact)
	}
	return doc
}

// UpsertContact records the latest known handles for a chat. Last write wins;
// a username that moved between chats simply points at the newest one.
func (s *Store) UpsertContact(chatId int64, username, phone string) error {
	s.muIndex.Lock()
	defer s.muIndex.Unlock()

	doc := s.loadIndex()
	key := chatKey(chatId)

	prev := doc.ByChat[key]
	if prev.Username != "" && !strings.EqualFold(prev.Username, username) {
		delete(doc.ByUsername, strings.ToLower(prev.Username))
	}
	if prev.Phone != "" && prev.Phone != phone {
		delete(doc.ByPhone, prev.Phone)
	}

	entry := contact{Username: username, Phone: phone}
	if username == "" {
		entry.Username = prev.Username
	}
	if phone == "" {
		entry.Phone = prev.Phone
	}
	doc.ByChat[key] = entry

	if entry.Username != "" {
		doc.ByUsername[strings.ToLower(entry.Username)] = chatId
	}
	if entry.Phone != "" {
		doc.ByPhone[entry.Phone] = chatId
	}
	return s.save(fileIndex, doc)
}

func (s *Store) ChatByUsername(username string) (int64, error) {
	s.muIndex.Lock()
	defer s.muIndex.Unlock()

	doc := s.loadIndex()
	chatId, ok := doc.ByUsername[strings.ToLower(username)]
	if !ok {
		return 0, entity.ErrNotFound
	}
	return chatId, nil
}

func (s *Store) ChatByPhone(phone string) (int64, error) {
	s.muIndex.Lock()
	defer s.muIndex.Unlock()

	doc := s.loadIndex()
	chatId, ok := doc.ByPhone[phone]
	if !ok {
		return 0, entity.ErrNotFound
	}
	return chatId, nil
}
