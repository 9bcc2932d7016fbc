package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/domain"
)

const sessionPattern = "sess:*"

type filter struct {
	UID    string
	Delete bool
}

type dumper struct {
	rdb     *goredis.Client
	timeout time.Duration
	count   int64
	out     io.Writer
}

// run scans every session key, prints the ones matching f and returns how
// many matched. Provider tokens are never printed.
func (d dumper) run(ctx context.Context, f filter) (int, error) {
	var cursor uint64
	total := 0

	for {
		ctxScan, cancelScan := context.WithTimeout(ctx, d.timeout)
		keys, next, err := d.rdb.Scan(ctxScan, cursor, sessionPattern, d.count).Result()
		cancelScan()
		if err != nil {
			return total, fmt.Errorf("SCAN error: %w", err)
		}

		for _, k := range keys {
			ctxCmd, cancelCmd := context.WithTimeout(ctx, d.timeout)
			raw, _ := d.rdb.Get(ctxCmd, k).Bytes() // gone between SCAN and GET: show empty
			ttl, _ := d.rdb.TTL(ctxCmd, k).Result()
			cancelCmd()

			var s domain.Session
			if len(raw) > 0 {
				if err := json.Unmarshal(raw, &s); err != nil {
					fmt.Fprintf(d.out, "?) %s\n   undecodable: %v\n", k, err)
					continue
				}
			}
			if f.UID != "" && s.UID != f.UID {
				continue
			}

			total++
			fmt.Fprintf(d.out, "%d) %s\n   uid=%s provider=%s email=%q ttl=%s\n",
				total, k, s.UID, s.Provider, s.User.Email, ttl)

			if f.Delete {
				ctxDel, cancelDel := context.WithTimeout(ctx, d.timeout)
				n, err := d.rdb.Del(ctxDel, k).Result()
				cancelDel()
				if err != nil {
					fmt.Fprintf(d.out, "   DEL error: %v\n", err)
				} else {
					fmt.Fprintf(d.out, "   DEL ok: %d\n", n)
				}
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}
	return total, nil
}
