package services

import (
	"context"
	"sync"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/db"
	"inkwell/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// uniqueViewWindow bounds how long a session keeps counting as the same
// visit to a post.
const uniqueViewWindow = 24 * time.Hour

// viewEvent is one pending page view waiting for the background worker.
type viewEvent struct {
	PostID    uint
	UserID    *uint
	IPAddress string
	UserAgent string
	Referer   string
	SessionID string
}

// AnalyticsService records post views asynchronously. Views are queued,
// deduplicated per session+post and flushed in batches so a hot post does
// not turn every page load into a write.
type AnalyticsService struct {
	queue   chan viewEvent
	pending map[string]bool
	mu      sync.Mutex
}

var (
	analyticsService *AnalyticsService
	analyticsOnce    sync.Once
)

func GetAnalyticsService() *AnalyticsService {
	analyticsOnce.Do(func() {
		analyticsService = &AnalyticsService{
			queue:   make(chan viewEvent, 1000),
			pending: make(map[string]bool),
		}
		go analyticsService.worker()
	})
	return analyticsService
}

// RecordView queues a page view. Non-blocking; drops the event when the
// queue is full.
func (s *AnalyticsService) RecordView(ev viewEvent) {
	dedupeKey := ev.SessionID + ":" + cache.PostKey(ev.PostID)

	s.mu.Lock()
	if s.pending[dedupeKey] {
		s.mu.Unlock()
		return
	}
	s.pending[dedupeKey] = true
	s.mu.Unlock()

	select {
	case s.queue <- ev:
	default:
		s.mu.Lock()
		delete(s.pending, dedupeKey)
		s.mu.Unlock()
		log.Warn().Uint("post_id", ev.PostID).Msg("view queue full, dropping view")
	}
}

// RecordPostView is the handler-facing entry point.
func (s *AnalyticsService) RecordPostView(postID uint, userID *uint, ip, userAgent, referer, sessionID string) {
	s.RecordView(viewEvent{
		PostID:    postID,
		UserID:    userID,
		IPAddress: ip,
		UserAgent: userAgent,
		Referer:   referer,
		SessionID: sessionID,
	})
}

func (s *AnalyticsService) worker() {
	batch := make([]viewEvent, 0, 50)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case ev := <-s.queue:
			batch = append(batch, ev)
			if len(batch) >= 50 {
				s.processBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.processBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

func (s *AnalyticsService) processBatch(events []viewEvent) {
	for _, ev := range events {
		s.storeView(ev)

		dedupeKey := ev.SessionID + ":" + cache.PostKey(ev.PostID)
		s.mu.Lock()
		delete(s.pending, dedupeKey)
		s.mu.Unlock()
	}
}

// storeView writes the view row. Only the first view from a session within
// the window counts as unique and bumps the post's counter.
func (s *AnalyticsService) storeView(ev viewEvent) {
	var recent int64
	db.DB.Model(&models.PostView{}).
		Where("post_id = ? AND session_id = ? AND created_at > ?",
			ev.PostID, ev.SessionID, time.Now().Add(-uniqueViewWindow)).
		Count(&recent)

	view := models.PostView{
		PostID:       ev.PostID,
		UserID:       ev.UserID,
		IPAddress:    ev.IPAddress,
		UserAgent:    ev.UserAgent,
		Referer:      ev.Referer,
		SessionID:    ev.SessionID,
		IsUniqueView: recent == 0,
	}
	if err := db.DB.Create(&view).Error; err != nil {
		log.Error().Err(err).Uint("post_id", ev.PostID).Msg("store view failed")
		return
	}

	if view.IsUniqueView {
		err := db.DB.Model(&models.Post{}).Where("id = ?", ev.PostID).
			UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
		if err != nil {
			log.Error().Err(err).Uint("post_id", ev.PostID).Msg("bump view count failed")
		}
	}
}

// GetTrendingPosts returns the posts with the most unique views over the
// last week, cached.
func (s *BlogService) GetTrendingPosts(ctx context.Context, limit int) ([]models.Post, error) {
	key := cache.TrendingPostsKey(limit)
	var cached []models.Post
	if cache.GetJSON(ctx, s.store, key, &cached) {
		return cached, nil
	}

	since := time.Now().AddDate(0, 0, -7)

	var postIDs []uint
	err := db.DB.Model(&models.PostView{}).
		Select("post_id").
		Where("created_at > ? AND is_unique_view = ?", since, true).
		Group("post_id").
		Order("COUNT(*) DESC").
		Limit(limit).
		Pluck("post_id", &postIDs).Error
	if err != nil {
		return nil, err
	}
	if len(postIDs) == 0 {
		// Young site with no views yet, fall back to most liked.
		err = db.DB.Preload("User").Preload("Category").
			Order("like_count DESC, created_at DESC").
			Limit(limit).
			Find(&cached).Error
		if err != nil {
			return nil, err
		}
		fillCommentCounts(cached)
		cache.SetJSON(ctx, s.store, key, cached, trendingTTL)
		return cached, nil
	}

	var posts []models.Post
	err = db.DB.Preload("User").Preload("Category").
		Where("id IN ?", postIDs).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}

	// Restore the view-count ordering the grouped query produced.
	byID := make(map[uint]models.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}
	ordered := make([]models.Post, 0, len(postIDs))
	for _, id := range postIDs {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	fillCommentCounts(ordered)

	cache.SetJSON(ctx, s.store, key, ordered, trendingTTL)
	return ordered, nil
}

// ViewStats summarizes view counts for the admin dashboard.
type ViewStats struct {
	TotalViews  int64 `json:"total_views"`
	UniqueViews int64 `json:"unique_views"`
	ViewsToday  int64 `json:"views_today"`
}

// GetViewStats aggregates totals for the admin dashboard.
func GetViewStats() (*ViewStats, error) {
	var stats ViewStats
	if err := db.DB.Model(&models.PostView{}).Count(&stats.TotalViews).Error; err != nil {
		return nil, err
	}
	db.DB.Model(&models.PostView{}).Where("is_unique_view = ?", true).Count(&stats.UniqueViews)

	midnight := time.Now().Truncate(24 * time.Hour)
	db.DB.Model(&models.PostView{}).Where("created_at > ?", midnight).Count(&stats.ViewsToday)
	return &stats, nil
}
