package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/mock/gomock"

	"tweet_monitor/internal/domain"
	"tweet_monitor/internal/voice"
)

func (s *MonitorTestSuite) notifierWith(router CallRouter) *Notifier {
	n := NewNotifier(s.broadcast, s.prefs, router, s.callLogs, s.logger)
	n.now = func() time.Time { return s.now }
	return n
}

func (s *MonitorTestSuite) captureCallLogs() *[]*domain.CallLog {
	var logged []*domain.CallLog
	s.callLogs.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry *domain.CallLog) error {
			logged = append(logged, entry)
			return nil
		},
	).AnyTimes()
	return &logged
}

func (s *MonitorTestSuite) TestNotify_RoutesByRegion() {
	ctx := context.Background()
	account := &domain.MonitoredAccount{ID: "acc-1", UserID: "user-1", Username: "nasa"}
	tweets := []domain.Tweet{tweet("102", "newest"), tweet("101", "older")}

	s.broadcast.EXPECT().PublishNewTweets(ctx, "user-1", "nasa", tweets).Return(nil)
	s.prefs.EXPECT().PhoneSubscribers(ctx, "user-1").Return([]domain.PhoneSubscriber{
		{UserID: "user-1", PhoneNumber: "+8613800000000"},
		{UserID: "user-1", PhoneNumber: "+447911123456"},
	}, nil)
	logged := s.captureCallLogs()

	broadcast, calls := s.monitor.reconciler.notifier.Notify(ctx, account, tweets)

	s.True(broadcast)
	s.Require().Len(calls, 2)
	s.Equal(domain.ProviderDomestic, calls[0].Provider)
	s.Equal(domain.ProviderInternational, calls[1].Provider)

	s.Require().Len(s.domestic.requests, 1)
	s.Equal("+8613800000000", s.domestic.requests[0].To)
	s.Equal("newest", s.domestic.requests[0].Content)
	s.Equal("nasa", s.domestic.requests[0].AccountName)
	s.Require().Len(s.international.requests, 1)
	s.Equal("+447911123456", s.international.requests[0].To)

	s.Require().Len(*logged, 2)
	s.Equal(domain.CallInitiated, (*logged)[0].Status)
	s.Equal("task-1", *(*logged)[0].CallID)
	s.Equal(domain.ProviderInternational, (*logged)[1].Provider)
	s.Equal("CA1", *(*logged)[1].CallID)
	s.Equal("newest", (*logged)[1].Message)
	s.Equal(s.now, (*logged)[1].CreatedAt)
}

func (s *MonitorTestSuite) TestNotify_DisabledRegionSkipsWithoutLog() {
	ctx := context.Background()
	account := &domain.MonitoredAccount{ID: "acc-1", UserID: "user-1", Username: "nasa"}
	tweets := []domain.Tweet{tweet("102", "newest")}

	router := voice.NewRegionalRouter([]string{"+86", "86"}, s.domestic, nil)
	n := s.notifierWith(router)

	s.broadcast.EXPECT().PublishNewTweets(ctx, "user-1", "nasa", tweets).Return(nil)
	s.prefs.EXPECT().PhoneSubscribers(ctx, "user-1").Return([]domain.PhoneSubscriber{
		{UserID: "user-1", PhoneNumber: "+447911123456"},
	}, nil)

	_, calls := n.Notify(ctx, account, tweets)

	s.Require().Len(calls, 1)
	s.True(calls[0].Skipped)
	s.ErrorIs(calls[0].Err, domain.ErrNoRoute)
	s.Empty(s.international.requests)
	s.Empty(s.domestic.requests)
}

func (s *MonitorTestSuite) TestNotify_FailedCallIsLoggedAndOthersContinue() {
	ctx := context.Background()
	account := &domain.MonitoredAccount{ID: "acc-1", UserID: "user-1", Username: "nasa"}
	tweets := []domain.Tweet{tweet("102", "newest")}
	s.domestic.err = &voice.ProviderError{Provider: domain.ProviderDomestic, Code: "isv.BUSINESS_LIMIT_CONTROL"}

	s.broadcast.EXPECT().PublishNewTweets(ctx, "user-1", "nasa", tweets).Return(nil)
	s.prefs.EXPECT().PhoneSubscribers(ctx, "user-1").Return([]domain.PhoneSubscriber{
		{UserID: "user-1", PhoneNumber: "8613800000000"},
		{UserID: "user-1", PhoneNumber: "+14155550100"},
	}, nil)
	logged := s.captureCallLogs()

	_, calls := s.monitor.reconciler.notifier.Notify(ctx, account, tweets)

	s.Require().Len(calls, 2)
	s.Equal(domain.CallFailedToInitiate, calls[0].Status)
	s.ErrorIs(calls[0].Err, domain.ErrProviderRejected)
	s.Nil(calls[0].CallID)
	s.Equal(domain.CallInitiated, calls[1].Status)

	s.Require().Len(*logged, 2)
	s.Equal(domain.CallFailedToInitiate, (*logged)[0].Status)
	s.Nil((*logged)[0].CallID)
}

func (s *MonitorTestSuite) TestNotify_BroadcastFailureDoesNotBlockCalls() {
	ctx := context.Background()
	account := &domain.MonitoredAccount{ID: "acc-1", UserID: "user-1", Username: "nasa"}
	tweets := []domain.Tweet{tweet("102", "newest")}

	s.broadcast.EXPECT().PublishNewTweets(ctx, "user-1", "nasa", tweets).Return(errors.New("channel closed"))
	s.prefs.EXPECT().PhoneSubscribers(ctx, "user-1").Return([]domain.PhoneSubscriber{
		{UserID: "user-1", PhoneNumber: "+8613800000000"},
	}, nil)
	s.captureCallLogs()

	broadcast, calls := s.monitor.reconciler.notifier.Notify(ctx, account, tweets)

	s.False(broadcast)
	s.Require().Len(calls, 1)
	s.Equal(domain.CallInitiated, calls[0].Status)
}

func (s *MonitorTestSuite) TestNotify_CallLogFailureIsNotFatal() {
	ctx := context.Background()
	account := &domain.MonitoredAccount{ID: "acc-1", UserID: "user-1", Username: "nasa"}
	tweets := []domain.Tweet{tweet("102", "newest")}

	s.broadcast.EXPECT().PublishNewTweets(ctx, "user-1", "nasa", tweets).Return(nil)
	s.prefs.EXPECT().PhoneSubscribers(ctx, "user-1").Return([]domain.PhoneSubscriber{
		{UserID: "user-1", PhoneNumber: "+8613800000000"},
		{UserID: "user-1", PhoneNumber: "+8613900000000"},
	}, nil)
	s.callLogs.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(errors.New("db down")).Times(2)

	_, calls := s.monitor.reconciler.notifier.Notify(ctx, account, tweets)

	s.Len(calls, 2)
	s.Len(s.domestic.requests, 2)
}

func (s *MonitorTestSuite) TestNotify_NoProvidersSkipsPhoneLookup() {
	ctx := context.Background()
	account := &domain.MonitoredAccount{ID: "acc-1", UserID: "user-1", Username: "nasa"}
	tweets := []domain.Tweet{tweet("102", "newest")}

	n := s.notifierWith(voice.NewRegionalRouter([]string{"+86"}, nil, nil))
	s.broadcast.EXPECT().PublishNewTweets(ctx, "user-1", "nasa", tweets).Return(nil)

	broadcast, calls := n.Notify(ctx, account, tweets)

	s.True(broadcast)
	s.Empty(calls)
}

func (s *MonitorTestSuite) TestNotify_SubscriberLookupFailure() {
	ctx := context.Background()
	account := &domain.MonitoredAccount{ID: "acc-1", UserID: "user-1", Username: "nasa"}
	tweets := []domain.Tweet{tweet("102", "newest")}

	s.broadcast.EXPECT().PublishNewTweets(ctx, "user-1", "nasa", tweets).Return(nil)
	s.prefs.EXPECT().PhoneSubscribers(ctx, "user-1").Return(nil, errors.New("db down"))

	broadcast, calls := s.monitor.reconciler.notifier.Notify(ctx, account, tweets)

	s.True(broadcast)
	s.Empty(calls)
	s.Empty(s.domestic.requests)
}
