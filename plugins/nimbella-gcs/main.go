// Command nimbella-gcs is the Google Cloud Storage provider library. Build it with
//
//	go build -buildmode=plugin -o libnimbella-gcs.so ./plugins/nimbella-gcs
package main

import "github.com/ruteri/serverless-sdk/storage/gcs"

// LoadProvider is looked up by the provider registry.
func LoadProvider() any {
	return gcs.LoadProvider()
}

func main() {}
