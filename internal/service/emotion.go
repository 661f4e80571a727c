package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"DayPulse/internal/model"
	"DayPulse/internal/model/dto"
	"DayPulse/internal/repository"
	pkgerrors "DayPulse/pkg/errors"
	"DayPulse/pkg/logger"
)

// NormalizeEmotionName 目录键规范化：去空白、折叠大小写
//
// 聚合时的未命中大多来自协作方文案里细微的大小写或空白漂移，
// 统一在这里吸收掉。
func NormalizeEmotionName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Catalog 情绪目录的只读内存快照
type Catalog struct {
	byName map[string]model.Emotion
	items  []model.Emotion
}

// NewCatalog 由字典行构建快照，键按规范化名称索引
func NewCatalog(items []model.Emotion) *Catalog {
	byName := make(map[string]model.Emotion, len(items))
	for _, e := range items {
		byName[NormalizeEmotionName(e.Name)] = e
	}
	return &Catalog{byName: byName, items: items}
}

// Resolve 按名称查目录项，未收录时 ok 为 false
func (c *Catalog) Resolve(name string) (model.Emotion, bool) {
	if c == nil {
		return model.Emotion{}, false
	}
	e, ok := c.byName[NormalizeEmotionName(name)]
	return e, ok
}

// Items 返回目录全量，保持加载时的排序
func (c *Catalog) Items() []model.Emotion {
	if c == nil {
		return nil
	}
	return c.items
}

// EmotionService 情绪目录服务，启动时整表加载，读多写少
type EmotionService struct {
	mu      sync.RWMutex
	catalog *Catalog
}

var (
	emotionService *EmotionService
	emotionOnce    sync.Once
)

func Emotion() *EmotionService {
	emotionOnce.Do(func() {
		emotionService = &EmotionService{}
	})
	return emotionService
}

// Load 整表加载目录，进程启动时调用一次
func (s *EmotionService) Load(ctx context.Context) error {
	return s.reload(ctx)
}

func (s *EmotionService) reload(ctx context.Context) error {
	list, err := repository.Emotions().ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load emotion catalog: %w", err)
	}

	items := make([]model.Emotion, 0, len(list))
	for _, e := range list {
		items = append(items, *e)
	}

	s.mu.Lock()
	s.catalog = NewCatalog(items)
	s.mu.Unlock()

	logger.Logger.Info("Emotion catalog loaded",
		zap.Int("count", len(items)),
	)
	return nil
}

func (s *EmotionService) snapshot() *Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

// Resolve 按名称取情绪项
//
// 未命中时重载一次再查，吸收启动后补种的字典行；仍未命中报
// EmotionUnknown，由调用方决定是丢弃还是上抛。
func (s *EmotionService) Resolve(ctx context.Context, name string) (model.Emotion, error) {
	if strings.TrimSpace(name) == "" {
		return model.Emotion{}, pkgerrors.EmotionUnknown
	}

	if e, ok := s.snapshot().Resolve(name); ok {
		return e, nil
	}

	if err := s.reload(ctx); err != nil {
		return model.Emotion{}, err
	}
	if e, ok := s.snapshot().Resolve(name); ok {
		return e, nil
	}
	return model.Emotion{}, pkgerrors.EmotionUnknown
}

// List 目录列表，给 GET /emotions 用
func (s *EmotionService) List(ctx context.Context) (*dto.EmotionListData, error) {
	catalog := s.snapshot()
	if catalog == nil {
		if err := s.reload(ctx); err != nil {
			return nil, err
		}
		catalog = s.snapshot()
	}

	items := catalog.Items()
	result := make([]dto.EmotionData, 0, len(items))
	for _, e := range items {
		result = append(result, dto.EmotionData{
			Name:  e.Name,
			Emoji: e.Emoji,
		})
	}
	return &dto.EmotionListData{Emotions: result}, nil
}
