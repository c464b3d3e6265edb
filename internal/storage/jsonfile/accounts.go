package jsonfile

import (
	"strconv"
	"teambot/entity"
	"teambot/lib/ident"
	"time"
)

type accountsDoc struct {
	Accounts map[string]*entity.Account `json:"accounts"`
	ByChat   map[string]string          `json:"by_chat"`
}

func (s *Store) loadAccounts() *accountsDoc {
	doc := &accountsDoc{}
	s.load(fileAccounts, doc)
	if doc.Accounts == nil {
		doc.Accounts = make(map[string]*entity.Account)
	}
	if doc.ByChat == nil {
		doc.ByChat = make(map[string]string)
	}
	return doc
}

func (s *Store) Account(accountId string) (*entity.Account, error) {
	s.muAccounts.Lock()
	defer s.muAccounts.Unlock()

	doc := s.loadAccounts()
	acc, ok := doc.Accounts[accountId]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return acc, nil
}

func (s *Store) AccountByChat(chatId int64) (*entity.Account, error) {
	s.muAccounts.Lock()
	defer s.muAccounts.Unlock()

	doc := s.loadAccounts()
	acc, ok := doc.Accounts[doc.ByChat[chatKey(chatId)]]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return acc, nil
}

// RegisterAccount creates the account on first contact and refreshes the
// display fields afterwards. The whole cycle runs under the store lock, so
// two racing registrations cannot mint two ids for one chat.
func (s *Store) RegisterAccount(chatId int64, name, username string) (*entity.Account, error) {
	s.muAccounts.Lock()
	defer s.muAccounts.Unlock()

	doc := s.loadAccounts()
	if accId, ok := doc.ByChat[chatKey(chatId)]; ok {
		acc := doc.Accounts[accId]
		acc.DisplayName = name
		acc.Username = username
		if err := s.save(fileAccounts, doc); err != nil {
			return nil, err
		}
		return acc, nil
	}

	accId, err := ident.New(ident.Account, func(candidate string) bool {
		_, taken := doc.Accounts[candidate]
		return taken
	})
	if err != nil {
		return nil, err
	}
	acc := &entity.Account{
		AccountId:    accId,
		OwnerChatId:  chatId,
		DisplayName:  name,
		Username:     username,
		RegisteredAt: time.Now().UTC(),
	}
	if err = acc.Validate(); err != nil {
		return nil, entity.ErrInvalidInput
	}
	doc.Accounts[accId] = acc
	doc.ByChat[chatKey(chatId)] = accId
	if err = s.save(fileAccounts, doc); err != nil {
		return nil, err
	}
	return acc, nil
}

// UpdateAccount rewrites the mutable fields of an existing account.
// OwnerChatId is immutable; the stored value always wins.
func (s *Store) UpdateAccount(acc *entity.Account) error {
	s.muAccounts.Lock()
	defer s.muAccounts.Unlock()

	doc := s.loadAccounts()
	stored, ok := doc.Accounts[acc.AccountId]
	if !ok {
		return entity.ErrNotFound
	}
	stored.DisplayName = acc.DisplayName
	stored.Username = acc.Username
	if err := stored.Validate(); err != nil {
		return entity.ErrInvalidInput
	}
	return s.save(fileAccounts, doc)
}

func chatKey(chatId int64) string {
	return strconv.FormatInt(chatId, 10)
}
