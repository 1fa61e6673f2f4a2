package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"tweet_monitor/internal/domain"
)

type TweetStore struct {
	db *sqlx.DB
}

func NewTweetStore(db *sqlx.DB) *TweetStore {
	return &TweetStore{db: db}
}

// InsertBatch inserts all tweets in one statement. Tweets already stored for
// the account are left untouched, so a re-delivered id never blocks the
// cursor.
func (s *TweetStore) InsertBatch(ctx context.Context, tweets []domain.Tweet) error {
	if len(tweets) == 0 {
		return nil
	}

	const cols = 5
	var sb strings.Builder
	sb.WriteString("INSERT INTO tweets (account_id, tweet_id, content, media_urls, tweet_created_at) VALUES ")
	args := make([]interface{}, 0, len(tweets)*cols)

	for i, t := range tweets {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for c := 1; c <= cols; c++ {
			if c > 1 {
				sb.WriteString(", ")
			}
			sb.WriteString("$")
			sb.WriteString(strconv.Itoa(i*cols + c))
		}
		sb.WriteString(")")

		var media interface{}
		if len(t.MediaURLs) > 0 {
			media = pq.Array(t.MediaURLs)
		}
		args = append(args, t.AccountID, t.TweetID, t.Content, media, t.TweetCreatedAt)
	}

	sb.WriteString(" ON CONFLICT (account_id, tweet_id) DO NOTHING")

	if _, err := GetExecutor(ctx, s.db).ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert tweets: %w", err)
	}
	return nil
}

func (s *TweetStore) ListByAccount(ctx context.Context, accountID string) ([]domain.Tweet, error) {
	rows, err := GetExecutor(ctx, s.db).QueryxContext(ctx, `
		SELECT id, account_id, tweet_id, content, media_urls, tweet_created_at
		FROM tweets
		WHERE account_id = $1
		ORDER BY tweet_created_at DESC, id DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list tweets: %w", err)
	}
	defer rows.Close()

	var tweets []domain.Tweet
	for rows.Next() {
		var t domain.Tweet
		var media pq.StringArray
		if err := rows.Scan(&t.ID, &t.AccountID, &t.TweetID, &t.Content, &media, &t.TweetCreatedAt); err != nil {
			return nil, err
		}
		if len(media) > 0 {
			t.MediaURLs = []string(media)
		}
		tweets = append(tweets, t)
	}
	return tweets, rows.Err()
}
