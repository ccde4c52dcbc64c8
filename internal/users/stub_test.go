package users

import (
	"context"
	"fmt"
	"time"
)

// stubStore はハンドラー・ミドルウェアテスト用のインメモリ実装です。
// findErr を設定すると FindByID がその失敗を返します。
type stubStore struct {
	byID    map[string]*User
	findErr error
}

func newStubStore() *stubStore {
	return &stubStore{byID: map[string]*User{}}
}

func (s *stubStore) Create(ctx context.Context, user *User) error {
	for _, existing := range s.byID {
		if existing.Email == user.Email {
			return ErrEmailTaken
		}
	}
	copied := *user
	s.byID[user.ID] = &copied
	return nil
}

func (s *stubStore) FindByID(ctx context.Context, id string) (*User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	user, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (s *stubStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	for _, user := range s.byID {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *stubStore) Update(ctx context.Context, id string, mutate func(*User) error) (*User, error) {
	user, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	oldEmail := user.Email
	if err := mutate(user); err != nil {
		return nil, err
	}
	if user.Email != oldEmail {
		for otherID, other := range s.byID {
			if otherID != id && other.Email == user.Email {
				return nil, ErrEmailTaken
			}
		}
	}
	user.UpdatedAt = time.Now().UTC()
	copied := *user
	return &copied, nil
}

func (s *stubStore) Delete(ctx context.Context, id string) (*User, error) {
	user, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.byID, id)
	return user, nil
}

// stubTokens は発行順の連番トークンを返す TokenService 実装です。
type stubTokens struct {
	issued  int
	byToken map[string]string
}

func newStubTokens() *stubTokens {
	return &stubTokens{byToken: map[string]string{}}
}

func (s *stubTokens) Issue(userID string) (string, error) {
	s.issued++
	token := fmt.Sprintf("token-%d-%s", s.issued, userID)
	s.byToken[token] = userID
	return token, nil
}

func (s *stubTokens) Verify(token string) (string, error) {
	userID, ok := s.byToken[token]
	if !ok {
		return "", fmt.Errorf("invalid token")
	}
	return userID, nil
}

// stubMailer は送信依頼を記録するだけの Mailer 実装です。
type stubMailer struct {
	welcome  []string
	farewell []string
}

func (s *stubMailer) SendWelcome(ctx context.Context, email, name string) {
	s.welcome = append(s.welcome, email)
}

func (s *stubMailer) SendFarewell(ctx context.Context, email, name string) {
	s.farewell = append(s.farewell, email)
}

// stubPurger は連鎖削除の呼び出しを記録します。
type stubPurger struct {
	purged []string
	err    error
}

func (s *stubPurger) DeleteAllForOwner(ctx context.Context, ownerID string) error {
	if s.err != nil {
		return s.err
	}
	s.purged = append(s.purged, ownerID)
	return nil
}
