// Package stackexchange provides the primary entry point for constructing a
// StackExchange API client.
//
// It layers configuration, the retrying HTTP transport, the response cache
// and interceptors on top of the request chains, items and facades defined in
// the stackapi package.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/stackapi/pkg/stackapi"
//	  "github.com/fivetwenty-io/stackapi/pkg/stackexchange"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  // Anonymous access with the default in-memory cache.
//	  api, err := stackexchange.New(ctx, nil)
//	  if err != nil { log.Fatal(err) }
//
//	  // Or with an application key and a durable cache:
//	  config := stackapi.DefaultConfig()
//	  config.Key = "my-key"
//	  config.Cache.Type = stackapi.CacheTypeSQLite
//	  config.Cache.SQLite.Path = "/var/cache/stackapi.db"
//	  api, err = stackexchange.New(ctx, config)
//
//	  // Or from STACKAPI_* environment variables:
//	  api, err = stackexchange.NewFromEnv(ctx)
//
//	  questions, err := api.Site("stackoverflow").Questions().Sort("votes").Items(ctx)
//	  if err != nil { log.Fatal(err) }
//	  for _, question := range questions {
//	    log.Println(question)
//	  }
//	}
package stackexchange
