// Command sessiondump lists the server-side sessions held in Redis and can
// revoke them. Meant for local debugging only.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

func main() {
	var (
		addr    = flag.String("addr", "127.0.0.1:6379", "redis address host:port")
		pass    = flag.String("pass", "", "redis password")
		db      = flag.Int("db", 0, "redis db")
		uid     = flag.String("uid", "", "only sessions of this user")
		doDel   = flag.Bool("del", false, "delete matched sessions")
		limit   = flag.Int64("count", 200, "SCAN COUNT hint")
		timeout = flag.Duration("timeout", 2*time.Second, "per-command timeout")
	)
	flag.Parse()

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     *addr,
		Password: *pass,
		DB:       *db,
	})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		fmt.Fprintf(os.Stderr, "redis ping failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Connected: addr=%s db=%d\n", *addr, *db)

	d := dumper{rdb: rdb, timeout: *timeout, count: *limit, out: os.Stdout}
	total, err := d.run(context.Background(), filter{UID: *uid, Delete: *doDel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if total == 0 {
		fmt.Println("No sessions matched.")
	}
}
