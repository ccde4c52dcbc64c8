package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	userKeyPrefix  = "user:"
	emailKeyPrefix = "user:email:"
)

var (
	// ErrNotFound は対象ユーザーが存在しない場合に返されます。
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken はメールアドレスが既に使われている場合に返されます。
	ErrEmailTaken = errors.New("email already taken")
)

// RedisStore はユーザーレコードをRedisにJSONで保存します。
// メールアドレスの一意性は user:email:<addr> の索引キーで担保します。
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore は RedisStore を作成します。
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Create はユーザーを新規保存します。
// メールアドレスが既に登録済みの場合は ErrEmailTaken を返します。
func (s *RedisStore) Create(ctx context.Context, user *User) error {
	if user == nil || user.ID == "" {
		return fmt.Errorf("user.ID is required")
	}

	ok, err := s.rdb.SetNX(ctx, emailKey(user.Email), user.ID, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrEmailTaken
	}

	payload, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, userKey(user.ID), payload, 0).Err(); err != nil {
		// 索引だけが残らないように片付ける
		_ = s.rdb.Del(ctx, emailKey(user.Email)).Err()
		return err
	}
	return nil
}

// FindByID はユーザーを取得します。存在しない場合は (nil, nil) を返します。
func (s *RedisStore) FindByID(ctx context.Context, id string) (*User, error) {
	if id == "" {
		return nil, nil
	}
	data, err := s.rdb.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail は索引キー経由でユーザーを取得します。
// 存在しない場合は (nil, nil) を返します。
func (s *RedisStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	id, err := s.rdb.Get(ctx, emailKey(email)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	return s.FindByID(ctx, id)
}

// Update はユーザーレコードを原子的に読み取り・変更・保存します。
// 同一ユーザーへの同時ログイン/ログアウトでトークンリストの更新が
// 失われないよう、WATCHトランザクションで保護します。
// メールアドレスの変更時は、新アドレスの索引キーをSetNXで先に占有します。
// 存在チェックだけでは、別ユーザーが同じアドレスへ同時に変更したとき
// 双方が通過してしまい、一意性が壊れるためです。
func (s *RedisStore) Update(ctx context.Context, id string, mutate func(*User) error) (*User, error) {
	key := userKey(id)
	var updated *User

	for {
		var claimedEmail string
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if err == redis.Nil {
					return ErrNotFound
				}
				return err
			}

			var user User
			if err := json.Unmarshal(data, &user); err != nil {
				return err
			}
			oldEmail := user.Email

			if err := mutate(&user); err != nil {
				return err
			}
			user.UpdatedAt = time.Now().UTC()

			if user.Email != oldEmail {
				ok, err := tx.SetNX(ctx, emailKey(user.Email), id, 0).Result()
				if err != nil {
					return err
				}
				if ok {
					claimedEmail = user.Email
				} else {
					owner, err := tx.Get(ctx, emailKey(user.Email)).Result()
					if err != nil && err != redis.Nil {
						return err
					}
					if owner != id {
						return ErrEmailTaken
					}
				}
			}

			payload, err := json.Marshal(&user)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if user.Email != oldEmail {
					pipe.Del(ctx, emailKey(oldEmail))
				}
				pipe.Set(ctx, key, payload, 0)
				return nil
			})
			if err == nil {
				updated = &user
			}
			return err
		}, key)

		if err == nil {
			return updated, nil
		}
		// レコードを書けなかった場合、占有した索引だけが残らないように片付ける
		if claimedEmail != "" {
			_ = s.rdb.Del(ctx, emailKey(claimedEmail)).Err()
		}
		if err == redis.TxFailedErr {
			continue
		}
		return nil, err
	}
}

// Delete はユーザーと索引キーを削除し、削除したレコードを返します。
// 存在しない場合は ErrNotFound を返します。
func (s *RedisStore) Delete(ctx context.Context, id string) (*User, error) {
	user, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, userKey(id))
		pipe.Del(ctx, emailKey(user.Email))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func userKey(id string) string {
	return userKeyPrefix + id
}

func emailKey(email string) string {
	return emailKeyPrefix + email
}
