package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	taskKeyPrefix  = "task:"
	ownerKeySuffix = ":tasks"
	ownerKeyPrefix = "user:"
)

// ErrNotFound はタスクが存在しない場合に返されます。
// 他ユーザー所有のタスクも同じエラーになるため、呼び出し側からは
// 「存在しない」と「他人のもの」を区別できません。
var ErrNotFound = errors.New("task not found")

// RedisStore はタスクレコードをRedisにJSONで保存します。
// 所有者ごとのIDリスト（挿入順）を併せて保持し、
// デフォルトの一覧順とページングの安定性を担保します。
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore は RedisStore を作成します。
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Create はタスクを新規保存し、所有者のIDリスト末尾へ追加します。
func (s *RedisStore) Create(ctx context.Context, task *Task) error {
	if task == nil || task.ID == "" {
		return fmt.Errorf("task.ID is required")
	}
	if task.Owner == "" {
		return fmt.Errorf("task.Owner is required")
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, taskKey(task.ID), payload, 0)
		pipe.RPush(ctx, ownerKey(task.Owner), task.ID)
		return nil
	})
	return err
}

// FindForOwner は所有者スコープでタスクを取得します。
// 存在しない場合も所有者が異なる場合も ErrNotFound を返します。
func (s *RedisStore) FindForOwner(ctx context.Context, ownerID, taskID string) (*Task, error) {
	data, err := s.rdb.Get(ctx, taskKey(taskID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, err
	}
	if task.Owner != ownerID {
		return nil, ErrNotFound
	}
	return &task, nil
}

// Update は所有者スコープでタスクを原子的に読み取り・変更・保存します。
func (s *RedisStore) Update(ctx context.Context, ownerID, taskID string, mutate func(*Task) error) (*Task, error) {
	key := taskKey(taskID)
	var updated *Task

	for {
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if err == redis.Nil {
					return ErrNotFound
				}
				return err
			}

			var task Task
			if err := json.Unmarshal(data, &task); err != nil {
				return err
			}
			if task.Owner != ownerID {
				return ErrNotFound
			}

			if err := mutate(&task); err != nil {
				return err
			}
			task.UpdatedAt = time.Now().UTC()

			payload, err := json.Marshal(&task)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, payload, 0)
				return nil
			})
			if err == nil {
				updated = &task
			}
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
}

// Delete は所有者スコープでタスクを削除し、削除したレコードを返します。
func (s *RedisStore) Delete(ctx context.Context, ownerID, taskID string) (*Task, error) {
	task, err := s.FindForOwner(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, taskKey(taskID))
		pipe.LRem(ctx, ownerKey(ownerID), 0, taskID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// ListByOwner は所有者のタスクを挿入順で返します。
func (s *RedisStore) ListByOwner(ctx context.Context, ownerID string) ([]Task, error) {
	ids, err := s.rdb.LRange(ctx, ownerKey(ownerID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []Task{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = taskKey(id)
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	result := make([]Task, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// リストとレコードの不整合は無視して読み進める
			continue
		}
		var task Task
		if err := json.Unmarshal([]byte(raw), &task); err != nil {
			return nil, err
		}
		result = append(result, task)
	}
	return result, nil
}

// DeleteAllForOwner は所有者のタスクをすべて削除します。
// アカウント削除時の連鎖削除に使います。
func (s *RedisStore) DeleteAllForOwner(ctx context.Context, ownerID string) error {
	ids, err := s.rdb.LRange(ctx, ownerKey(ownerID), 0, -1).Result()
	if err != nil {
		return err
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.Del(ctx, taskKey(id))
		}
		pipe.Del(ctx, ownerKey(ownerID))
		return nil
	})
	return err
}

func taskKey(id string) string {
	return taskKeyPrefix + id
}

func ownerKey(ownerID string) string {
	return ownerKeyPrefix + ownerID + ownerKeySuffix
}
