package repository

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"campus_market_service/internal/chat/domain"
	"campus_market_service/pkg/database"
	"campus_market_service/pkg/logger"
	testtool "campus_market_service/pkg/test_tool"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	mongoContainer testcontainers.Container
	redisContainer testcontainers.Container
	mongoDB        *database.MongoDB
	redisClient    *redis.Client
)

func TestMain(m *testing.M) {
	ctx := context.Background()
	logger.SetNewNop()
	var err error

	mongoContainer, mongoHost, mongoPort, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image:        "mongo:latest",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp"),
	})
	if err != nil {
		log.Fatalf("Failed to start MongoDB container: %v", err)
	}

	redisContainer, redisHost, redisPort, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image:        "redis:latest",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	})
	if err != nil {
		log.Fatalf("Failed to start Redis container: %v", err)
	}

	mongoDB, err = database.NewMongoDB(ctx, database.Connection{
		ConnectStr:    fmt.Sprintf("mongodb://%s:%s", mongoHost, mongoPort),
		RetryCount:    5,
		RetryInterval: 5,
	}, "test_chat_db")
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	redisClient = redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", redisHost, redisPort),
		DB:   0,
	})

	code := m.Run()

	mongoDB.Close(ctx)
	_ = mongoContainer.Terminate(ctx)
	_ = redisContainer.Terminate(ctx)

	os.Exit(code)
}

// Concurrent EnsureThread calls on the same key must converge on one
// thread row.
func TestEnsureThread_ConcurrentCallsConverge(t *testing.T) {
	ctx := context.Background()
	repo := NewMongoThreadRepository(mongoDB.Database)
	assert.NoError(t, repo.EnsureIndexes(ctx))

	buyerID := uuid.New().String()
	sellerID := uuid.New().String()
	productID := uuid.New().String()

	const callers = 10
	ids := make([]string, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			thread, err := repo.EnsureThread(ctx, productID, buyerID, sellerID)
			if assert.NoError(t, err) {
				ids[i] = thread.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		assert.Equal(t, ids[0], ids[i])
	}

	threads, err := repo.FindForUser(ctx, buyerID)
	assert.NoError(t, err)
	assert.Len(t, threads, 1)
}

// The product thread and the feed thread of the same pair are distinct,
// and the reversed pair gets its own thread.
func TestEnsureThread_DistinctKeysDistinctThreads(t *testing.T) {
	ctx := context.Background()
	repo := NewMongoThreadRepository(mongoDB.Database)
	assert.NoError(t, repo.EnsureIndexes(ctx))

	userA := uuid.New().String()
	userB := uuid.New().String()
	productID := uuid.New().String()

	productThread, err := repo.EnsureThread(ctx, productID, userA, userB)
	assert.NoError(t, err)
	feedThread, err := repo.EnsureThread(ctx, "", userA, userB)
	assert.NoError(t, err)
	reversedThread, err := repo.EnsureThread(ctx, "", userB, userA)
	assert.NoError(t, err)

	assert.NotEqual(t, productThread.ID, feedThread.ID)
	assert.NotEqual(t, feedThread.ID, reversedThread.ID)
}

// Paging backwards with a timestamp cursor walks the full history without
// gaps or duplicates.
func TestFindByThread_CursorPagination(t *testing.T) {
	ctx := context.Background()
	repo := NewMongoMessageRepository(mongoDB.Database)
	assert.NoError(t, repo.EnsureIndexes(ctx))

	threadID := uuid.New().String()
	senderID := uuid.New().String()
	receiverID := uuid.New().String()

	const total = 25
	base := time.Now().UnixMilli()
	for i := 0; i < total; i++ {
		err := repo.Append(ctx, &domain.Message{
			ID:         uuid.New().String(),
			ThreadID:   threadID,
			SenderID:   senderID,
			ReceiverID: receiverID,
			Text:       fmt.Sprintf("msg %d", i),
			Kind:       domain.MessageKindUser,
			CreatedAt:  base + int64(i),
		})
		assert.NoError(t, err)
	}

	seen := map[string]bool{}
	var before int64
	var beforeID string
	for {
		page, err := repo.FindByThread(ctx, threadID, before, beforeID, 10)
		assert.NoError(t, err)
		if len(page) == 0 {
			break
		}
		for i, msg := range page {
			assert.False(t, seen[msg.ID], "message %s returned twice", msg.ID)
			seen[msg.ID] = true
			if i > 0 {
				assert.GreaterOrEqual(t, page[i-1].CreatedAt, msg.CreatedAt)
			}
		}
		before = page[len(page)-1].CreatedAt
		beforeID = page[len(page)-1].ID
	}
	assert.Len(t, seen, total)
}

// A burst of inserts landing in the same millisecond must survive a page
// boundary: the ID half of the cursor breaks the timestamp tie.
func TestFindByThread_SameMillisecondBoundary(t *testing.T) {
	ctx := context.Background()
	repo := NewMongoMessageRepository(mongoDB.Database)
	assert.NoError(t, repo.EnsureIndexes(ctx))

	threadID := uuid.New().String()
	senderID := uuid.New().String()
	receiverID := uuid.New().String()

	const total = 9
	stamp := time.Now().UnixMilli()
	for i := 0; i < total; i++ {
		err := repo.Append(ctx, &domain.Message{
			ID:         fmt.Sprintf("%02d-%s", i, uuid.New().String()),
			ThreadID:   threadID,
			SenderID:   senderID,
			ReceiverID: receiverID,
			Text:       fmt.Sprintf("burst %d", i),
			Kind:       domain.MessageKindUser,
			CreatedAt:  stamp,
		})
		assert.NoError(t, err)
	}

	seen := map[string]bool{}
	var before int64
	var beforeID string
	for {
		page, err := repo.FindByThread(ctx, threadID, before, beforeID, 4)
		assert.NoError(t, err)
		if len(page) == 0 {
			break
		}
		for _, msg := range page {
			assert.False(t, seen[msg.ID], "message %s returned twice", msg.ID)
			seen[msg.ID] = true
		}
		before = page[len(page)-1].CreatedAt
		beforeID = page[len(page)-1].ID
	}
	assert.Len(t, seen, total)
}

func TestMessageMarkRead_OnlyReceiverUnread(t *testing.T) {
	ctx := context.Background()
	repo := NewMongoMessageRepository(mongoDB.Database)

	threadID := uuid.New().String()
	userA := uuid.New().String()
	userB := uuid.New().String()

	for i, pair := range [][2]string{{userA, userB}, {userB, userA}, {userA, userB}} {
		err := repo.Append(ctx, &domain.Message{
			ID:         uuid.New().String(),
			ThreadID:   threadID,
			SenderID:   pair[0],
			ReceiverID: pair[1],
			Text:       fmt.Sprintf("msg %d", i),
			Kind:       domain.MessageKindUser,
			CreatedAt:  time.Now().UnixMilli() + int64(i),
		})
		assert.NoError(t, err)
	}

	// userB reads: the two messages addressed to them flip, userA's stays
	marked, err := repo.MarkRead(ctx, threadID, userB)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), marked)

	marked, err = repo.MarkRead(ctx, threadID, userB)
	assert.NoError(t, err)
	assert.Zero(t, marked)
}

func TestNotificationLedger_UnreadAggregation(t *testing.T) {
	ctx := context.Background()
	repo := NewMongoNotificationRepository(mongoDB.Database)
	assert.NoError(t, repo.EnsureIndexes(ctx))

	userID := uuid.New().String()
	threadA := uuid.New().String()
	threadB := uuid.New().String()

	for i, threadID := range []string{threadA, threadA, threadB} {
		err := repo.Create(ctx, &domain.Notification{
			ID:        uuid.New().String(),
			UserID:    userID,
			Type:      domain.NotificationMessage,
			Text:      fmt.Sprintf("note %d", i),
			Related:   domain.ThreadRef(threadID),
			CreatedAt: time.Now().UnixMilli() + int64(i),
		})
		assert.NoError(t, err)
	}
	// a bid notification must not show up in the per-thread counts
	assert.NoError(t, repo.Create(ctx, &domain.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      domain.NotificationBid,
		Text:      "bid on your product",
		Related:   domain.ProductRef(uuid.New().String()),
		CreatedAt: time.Now().UnixMilli(),
	}))

	total, err := repo.CountUnread(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, int64(4), total)

	infos, err := repo.CountUnreadMessagesByThread(ctx, userID)
	assert.NoError(t, err)
	counts := map[string]int{}
	for _, info := range infos {
		counts[info.ThreadID] = info.UnreadCount
	}
	assert.Equal(t, map[string]int{threadA: 2, threadB: 1}, counts)

	marked, err := repo.MarkThreadRead(ctx, userID, threadA)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), marked)

	total, err = repo.CountUnread(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestRedisPubSub_CrossInstanceRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// two pub/sub instances stand in for two service processes
	publisher := NewRedisPubSub(redisClient)
	subscriber := NewRedisPubSub(redisClient)

	channel := UserChannel(uuid.New().String())
	received := make(chan domain.WSResponse, 1)
	assert.NoError(t, subscriber.Subscribe(ctx, channel, func(resp domain.WSResponse) {
		received <- resp
	}))
	time.Sleep(200 * time.Millisecond)

	event := domain.PushEvent{
		Event:   domain.NewMessage,
		Message: &domain.Message{ID: "m1", Text: "hello"},
	}
	assert.NoError(t, publisher.Publish(channel, event))

	select {
	case resp := <-received:
		assert.Equal(t, string(domain.NewMessage), resp.Action)
		assert.True(t, resp.Success)
	case <-time.After(3 * time.Second):
		t.Fatal("no event received over redis")
	}
}

func TestRedisPubSub_SkipsOwnEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	instance := NewRedisPubSub(redisClient)
	channel := ThreadChannel(uuid.New().String())
	received := make(chan domain.WSResponse, 1)
	assert.NoError(t, instance.Subscribe(ctx, channel, func(resp domain.WSResponse) {
		received <- resp
	}))
	time.Sleep(200 * time.Millisecond)

	assert.NoError(t, instance.Publish(channel, domain.PushEvent{Event: domain.NewMessage}))

	select {
	case <-received:
		t.Fatal("instance delivered its own event twice")
	case <-time.After(time.Second):
	}
}
