// Command nimbella-redis is the Redis key-value provider library. Build it with
//
//	go build -buildmode=plugin -o libnimbella-redis.so ./plugins/nimbella-redis
package main

import "github.com/ruteri/serverless-sdk/keyvalue/redis"

// LoadProvider is looked up by the key-value resolver.
func LoadProvider() any {
	return redis.LoadProvider()
}

func main() {}
