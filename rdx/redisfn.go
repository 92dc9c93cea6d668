package rdx

import (
	"log"
	"os"
	"time"

	"mkulima/globals"

	"github.com/redis/go-redis/v9"
)

var Conn *redis.Client

// Init connects the shared Redis client. Lock helpers degrade to no-ops
// when Redis is not configured so the dev fallback still works.
func Init() {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	Conn = redis.NewClient(&redis.Options{Addr: addr})
	if err := Conn.Ping(globals.Ctx).Err(); err != nil {
		log.Printf("Redis unavailable at %s: %v", addr, err)
	}
}

// RdxSetNX acquires key for ttl if it is free.
func RdxSetNX(key, value string, ttl time.Duration) (bool, error) {
	if Conn == nil {
		return true, nil
	}
	return Conn.SetNX(globals.Ctx, key, value, ttl).Result()
}

// RdxDel releases key.
func RdxDel(key string) {
	if Conn == nil {
		return
	}
	if err := Conn.Del(globals.Ctx, key).Err(); err != nil {
		log.Printf("RdxDel: failed for key %s, err=%v", key, err)
	}
}

// RdxSet stores key with a ttl.
func RdxSet(key, value string, ttl time.Duration) error {
	if Conn == nil {
		return nil
	}
	return Conn.Set(globals.Ctx, key, value, ttl).Err()
}

// RdxGet reads key; empty string when missing.
func RdxGet(key string) string {
	if Conn == nil {
		return ""
	}
	val, err := Conn.Get(globals.Ctx, key).Result()
	if err != nil {
		return ""
	}
	return val
}
