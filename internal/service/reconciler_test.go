package service

import (
	"context"
	"errors"

	"tweet_monitor/internal/domain"
	"tweet_monitor/testdata/utils"
)

func (s *MonitorTestSuite) reconciler() *Reconciler {
	return s.monitor.reconciler
}

func (s *MonitorTestSuite) TestReconcile_FirstPassDoesNotNotify() {
	ctx := context.Background()
	account := domain.MonitoredAccount{ID: "acc-1", UserID: "user-1", TwitterID: "42", Username: "nasa"}
	fetched := []domain.Tweet{tweet("7", "hello"), tweet("6", "older")}

	s.source.EXPECT().FetchTimeline(ctx, "42", nil).Return(&domain.Timeline{Tweets: fetched, NewestID: "7"}, nil)
	s.tweets.EXPECT().InsertBatch(ctx, withAccount(fetched, "acc-1")).Return(nil)
	s.accounts.EXPECT().AdvanceCursor(ctx, "acc-1", s.now, utils.Ptr("7")).Return(nil)

	result := s.reconciler().Reconcile(ctx, account, s.now)

	s.NoError(result.Err)
	s.Equal(domain.OutcomeBaseline, result.Outcome)
	s.Equal("7", *result.Cursor)
	s.False(result.Broadcast)
	s.Empty(result.Calls)
	s.Empty(s.domestic.requests)
	s.Empty(s.international.requests)
}

func (s *MonitorTestSuite) TestReconcile_CursorUsesNumericOrder() {
	ctx := context.Background()
	account := domain.MonitoredAccount{ID: "acc-1", UserID: "user-1", TwitterID: "42", Username: "nasa", LastTweetID: utils.Ptr("99")}
	fetched := []domain.Tweet{tweet("100", "a"), tweet("101", "b"), tweet("94", "c")}
	stored := withAccount(fetched, "acc-1")

	s.source.EXPECT().FetchTimeline(ctx, "42", utils.Ptr("99")).Return(&domain.Timeline{Tweets: fetched}, nil)
	s.tweets.EXPECT().InsertBatch(ctx, stored).Return(nil)
	s.accounts.EXPECT().AdvanceCursor(ctx, "acc-1", s.now, utils.Ptr("101")).Return(nil)
	s.broadcast.EXPECT().PublishNewTweets(ctx, "user-1", "nasa", stored).Return(nil)
	s.prefs.EXPECT().PhoneSubscribers(ctx, "user-1").Return(nil, nil)

	result := s.reconciler().Reconcile(ctx, account, s.now)

	s.NoError(result.Err)
	s.Equal("101", *result.Cursor)
}

func (s *MonitorTestSuite) TestReconcile_NoNewTweetsIsIdempotent() {
	ctx := context.Background()
	account := domain.MonitoredAccount{ID: "acc-1", UserID: "user-1", TwitterID: "42", Username: "nasa", LastTweetID: utils.Ptr("100")}

	s.source.EXPECT().FetchTimeline(ctx, "42", utils.Ptr("100")).Return(&domain.Timeline{}, nil).Times(2)
	s.accounts.EXPECT().TouchChecked(ctx, "acc-1", s.now).Return(nil).Times(2)

	for i := 0; i < 2; i++ {
		result := s.reconciler().Reconcile(ctx, account, s.now)
		s.NoError(result.Err)
		s.Equal(domain.OutcomeNoNewItems, result.Outcome)
		s.Equal("100", *result.Cursor)
	}
}

func (s *MonitorTestSuite) TestReconcile_InsertFailureKeepsCursorAndSuppressesNotifications() {
	ctx := context.Background()
	account := domain.MonitoredAccount{ID: "acc-1", UserID: "user-1", TwitterID: "42", Username: "nasa", LastTweetID: utils.Ptr("100")}
	fetched := []domain.Tweet{tweet("101", "a")}

	s.source.EXPECT().FetchTimeline(ctx, "42", utils.Ptr("100")).Return(&domain.Timeline{Tweets: fetched, NewestID: "101"}, nil)
	s.tweets.EXPECT().InsertBatch(ctx, withAccount(fetched, "acc-1")).Return(errors.New("duplicate key"))
	s.accounts.EXPECT().TouchChecked(ctx, "acc-1", s.now).Return(nil)

	result := s.reconciler().Reconcile(ctx, account, s.now)

	s.Error(result.Err)
	s.Equal(domain.OutcomePersistFailed, result.Outcome)
	s.Equal("100", *result.Cursor)
	s.Equal(0, result.NewTweets)
	s.False(result.Broadcast)
	s.Empty(result.Calls)
}

func (s *MonitorTestSuite) TestReconcile_CursorUpdateFailureRollsBack() {
	ctx := context.Background()
	account := domain.MonitoredAccount{ID: "acc-1", UserID: "user-1", TwitterID: "42", Username: "nasa", LastTweetID: utils.Ptr("100")}
	fetched := []domain.Tweet{tweet("101", "a")}

	s.source.EXPECT().FetchTimeline(ctx, "42", utils.Ptr("100")).Return(&domain.Timeline{Tweets: fetched}, nil)
	s.tweets.EXPECT().InsertBatch(ctx, withAccount(fetched, "acc-1")).Return(nil)
	s.accounts.EXPECT().AdvanceCursor(ctx, "acc-1", s.now, utils.Ptr("101")).Return(errors.New("timeout"))
	s.accounts.EXPECT().TouchChecked(ctx, "acc-1", s.now).Return(nil)

	result := s.reconciler().Reconcile(ctx, account, s.now)

	s.Equal(domain.OutcomePersistFailed, result.Outcome)
	s.Equal("100", *result.Cursor)
}

func (s *MonitorTestSuite) TestReconcile_InvalidTweetIDFailsPass() {
	ctx := context.Background()
	account := domain.MonitoredAccount{ID: "acc-1", UserID: "user-1", TwitterID: "42", Username: "nasa", LastTweetID: utils.Ptr("100")}

	s.source.EXPECT().FetchTimeline(ctx, "42", utils.Ptr("100")).Return(&domain.Timeline{Tweets: []domain.Tweet{tweet("x1", "a")}}, nil)
	s.accounts.EXPECT().TouchChecked(ctx, "acc-1", s.now).Return(nil)

	result := s.reconciler().Reconcile(ctx, account, s.now)

	s.ErrorIs(result.Err, domain.ErrInvalidCursor)
	s.Equal("100", *result.Cursor)
}

func (s *MonitorTestSuite) TestReconcile_TouchFailureIsLoggedOnly() {
	ctx := context.Background()
	account := domain.MonitoredAccount{ID: "acc-1", TwitterID: "42", Username: "nasa"}

	s.source.EXPECT().FetchTimeline(ctx, "42", nil).Return(&domain.Timeline{}, nil)
	s.accounts.EXPECT().TouchChecked(ctx, "acc-1", s.now).Return(errors.New("db down"))

	result := s.reconciler().Reconcile(ctx, account, s.now)

	s.NoError(result.Err)
	s.Equal(domain.OutcomeNoNewItems, result.Outcome)
}
