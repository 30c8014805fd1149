// Package stackapi provides a client for version 2.1 of the StackExchange API.
//
// # Overview
//
// Requests are described by chaining methods, identifiers and parameters.
// Nothing is sent until the reply is observed; the URL is then rendered, the
// cache consulted and, on a miss, the request sent and the reply decoded into
// Items whose fields are interpreted using a registry of known item types.
// Most consumers should build an API with the stackexchange package.
//
// Getting started
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
//	  api, err := stackexchange.New(ctx, &stackapi.Config{Key: "my-key"})
//	  if err != nil { log.Fatal(err) }
//
//	  user, err := api.Site("stackoverflow").Users(42).First(ctx)
//	  if err != nil { log.Fatal(err) }
//
//	  name, _ := user.GetString("display_name")
//	  created, _ := user.GetTime("creation_date")
//	  log.Println(name, created)
//	}
//
// # Request chains
//
// Every chain node is immutable, so partial chains can be shared:
//
//	questions := api.Site("stackoverflow").Questions().Sort("votes")
//	first := questions.Page(1)
//	second := questions.Page(2)
//
// Methods that modify data ("add", "delete", "edit") switch the request to
// POST and disable caching. Setting an access token switches it to https.
//
// # Filters
//
// Filters are created on the server lazily:
//
//	filter := api.NewFilter("").Include("question.body")
//	questions := api.Site("stackoverflow").Questions().Filter(filter)
//
// # Errors
//
// Error envelopes returned by the API are reported as *APIError. Helpers such
// as IsAPIError, IsThrottled and IsEmptyResult make it easy to branch on them.
//
// # Interceptors and caching
//
// Replies to GET requests are cached by URL for ten minutes by default. Cache
// backends include memory, SQLite, Redis, NATS JetStream KV, PostgreSQL and
// etcd; see CacheConfig. Interceptors run around every network call and can
// log, rate limit, tag or measure requests.
package stackapi
