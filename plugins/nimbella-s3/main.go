// Command nimbella-s3 is the S3 storage provider library. Build it with
//
//	go build -buildmode=plugin -o libnimbella-s3.so ./plugins/nimbella-s3
package main

import "github.com/ruteri/serverless-sdk/storage/s3"

// LoadProvider is looked up by the provider registry.
func LoadProvider() any {
	return s3.LoadProvider()
}

func main() {}
