package jobs

import (
	"context"
	"encoding/json"
	"log"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/naijabuzzed-bit/Achek-Downloader/internal/models"
)

// Mirror writes terminal job records to Redis for post-hoc diagnostics.
// The in-memory registry stays authoritative; when Redis is not
// configured or not reachable every call is a no-op.
type Mirror struct {
	client *redis.Client
	ttl    time.Duration
}

func NewMirror(addr string, ttl time.Duration) *Mirror {
	if addr == "" {
		return &Mirror{}
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Redis not available, job mirroring disabled: %v", err)
		return &Mirror{}
	}
	log.Println("Redis connected, mirroring job records")
	return &Mirror{client: client, ttl: ttl}
}

func (mr *Mirror) Save(ctx context.Context, token string, rec models.JobRecord) {
	if mr.client == nil {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := mr.client.Set(ctx, "job:"+token, data, mr.ttl).Err(); err != nil {
		log.Printf("Could not mirror job %s: %v", token, err)
	}
}
