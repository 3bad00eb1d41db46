// Command nimbella-file is the local filesystem storage provider library. Build it with
//
//	go build -buildmode=plugin -o libnimbella-file.so ./plugins/nimbella-file
package main

import "github.com/ruteri/serverless-sdk/storage/file"

// LoadProvider is looked up by the provider registry.
func LoadProvider() any {
	return file.LoadProvider()
}

func main() {}
