package faqstore

import (
	"context"
	"fmt"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/faqbot/internal/domain/faq"
)

// ValkeyStore keeps trending counters in a sorted set so every instance shares them.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore constructs a new store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "faqbot"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

// IncrementQuery bumps the counter and remembers the first display text in one round trip.
func (s *ValkeyStore) IncrementQuery(ctx context.Context, canonical, display string) error {
	if canonical == "" {
		return nil
	}
	cmds := []valkey.Completed{
		s.client.B().Zincrby().Key(s.trendingKey()).Increment(1).Member(canonical).Build(),
	}
	if display != "" {
		cmds = append(cmds, s.client.B().Set().Key(s.displayKey(canonical)).Value(display).Nx().Build())
	}
	results := s.client.DoMulti(ctx, cmds...)
	if err := results[0].Error(); err != nil {
		return err
	}
	return nil
}

// TopQueries returns the highest scored members with their display text.
func (s *ValkeyStore) TopQueries(ctx context.Context, limit int) ([]faq.TrendingQuery, error) {
	if limit <= 0 {
		limit = defaultTopLimit
	}
	scores, err := s.client.Do(ctx, s.client.B().Zrevrange().Key(s.trendingKey()).Start(0).Stop(int64(limit-1)).Withscores().Build()).AsZScores()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(scores) == 0 {
		return nil, nil
	}

	keys := make([]string, len(scores))
	for i, z := range scores {
		keys[i] = s.displayKey(z.Member)
	}
	displays, _ := s.client.Do(ctx, s.client.B().Mget().Key(keys...).Build()).ToArray()

	out := make([]faq.TrendingQuery, 0, len(scores))
	for i, z := range scores {
		var display string
		if i < len(displays) {
			display, _ = displays[i].ToString()
		}
		out = append(out, faq.TrendingQuery{Query: displayOr(display, z.Member), Count: int64(z.Score)})
	}
	return out, nil
}

func (s *ValkeyStore) trendingKey() string {
	return fmt.Sprintf("%s:trending", s.prefix)
}

func (s *ValkeyStore) displayKey(canonical string) string {
	return fmt.Sprintf("%s:display:%s", s.prefix, canonical)
}

var _ faq.Store = (*ValkeyStore)(nil)
