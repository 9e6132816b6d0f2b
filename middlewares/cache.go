package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joy095/staybook/config"
	"github.com/joy095/staybook/logger"
	"github.com/redis/go-redis/v9"
)

const maxCachedBody = 1 << 20

// cacheWriter forwards the response while keeping a copy of the body.
type cacheWriter struct {
	gin.ResponseWriter
	buf      bytes.Buffer
	overflow bool
}

func (w *cacheWriter) Write(b []byte) (int, error) {
	w.keep(b)
	return w.ResponseWriter.Write(b)
}

func (w *cacheWriter) WriteString(s string) (int, error) {
	w.keep([]byte(s))
	return w.ResponseWriter.WriteString(s)
}

func (w *cacheWriter) keep(b []byte) {
	if w.overflow || w.buf.Len()+len(b) > maxCachedBody {
		w.overflow = true
		return
	}
	w.buf.Write(b)
}

func cacheKey(prefix string, c *gin.Context) string {
	sum := sha1.Sum([]byte(c.Request.URL.Path + "?" + c.Request.URL.RawQuery))
	return fmt.Sprintf("%s:%x", prefix, sum[:])
}

// encodeCached packs [4 bytes status][4 bytes header length][header JSON][body].
func encodeCached(status int, header http.Header, body []byte) ([]byte, error) {
	hdr, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdr)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdr)))
	copy(out[8:], hdr)
	copy(out[8+len(hdr):], body)
	return out, nil
}

func decodeCached(bs []byte) (int, http.Header, []byte, bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status := int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header := make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}

// ResponseCache serves repeated GET requests from Redis for cfg.TTL. Only
// 200 responses are stored.
func ResponseCache(cfg config.CacheConfig, rdb *redis.Client) gin.HandlerFunc {
	if !cfg.Enabled || rdb == nil {
		return func(c *gin.Context) { c.Next() }
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := cacheKey(cfg.Prefix, c)
		if bs, err := rdb.Get(c.Request.Context(), key).Bytes(); err == nil {
			if status, header, body, ok := decodeCached(bs); ok {
				for k, vals := range header {
					if strings.EqualFold(k, "Content-Length") {
						continue
					}
					for _, v := range vals {
						c.Writer.Header().Add(k, v)
					}
				}
				c.Writer.Header().Set("X-Cache", "HIT")
				c.Writer.WriteHeader(status)
				_, _ = c.Writer.Write(body)
				c.Abort()
				return
			}
		}

		w := &cacheWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Writer.Header().Set("X-Cache", "MISS")
		c.Next()

		if w.Status() != http.StatusOK || w.overflow || w.buf.Len() == 0 {
			return
		}
		header := c.Writer.Header().Clone()
		header.Del("X-Cache")
		payload, err := encodeCached(w.Status(), header, w.buf.Bytes())
		if err != nil {
			return
		}
		if err := rdb.Set(context.WithoutCancel(c.Request.Context()), key, payload, ttl).Err(); err != nil {
			logger.WarnLogger.Warnf("Failed to cache %s: %v", c.Request.URL.Path, err)
		}
	}
}
