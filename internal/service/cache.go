// cache.go — LRU-кэш заявок с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/buzzilka/team-development/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ap_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш заявок.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ap_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша заявок.",
	})
)

// cachedRequest — заявка вместе с вложениями, как её отдаёт GetByID.
type cachedRequest struct {
	request     *model.Request
	attachments []*model.Attachment
}

// RequestCache — LRU-кэш заявок с автоматическим TTL.
// Кэшируется только чтение по ID; любая мутация инвалидирует запись.
type RequestCache struct {
	cache *expirable.LRU[string, *cachedRequest]
}

// NewRequestCache создаёт LRU-кэш с указанным максимальным размером и TTL.
func NewRequestCache(maxSize int, ttl time.Duration) *RequestCache {
	cache := expirable.NewLRU[string, *cachedRequest](maxSize, nil, ttl)
	return &RequestCache{cache: cache}
}

// Get возвращает заявку из кэша по ID.
// Обновляет Prometheus-метрики hit/miss.
func (c *RequestCache) Get(id string) (*cachedRequest, bool) {
	val, ok := c.cache.Get(id)
	if ok {
		cacheHitsTotal.Inc()
		return val, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет запись в кэше.
func (c *RequestCache) Set(id string, req *model.Request, atts []*model.Attachment) {
	c.cache.Add(id, &cachedRequest{request: req, attachments: atts})
}

// Invalidate удаляет запись из кэша.
func (c *RequestCache) Invalidate(id string) {
	c.cache.Remove(id)
}
