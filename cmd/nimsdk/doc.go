/*
nimsdk exposes every SDK operation on the command line.

	nimsdk --namespace acme --api-host https://apigcp.nimbella.io storage --web url
	nimsdk storage put --dest img/logo.png ./logo.png
	nimsdk kv set counter 1
	nimsdk lib ensure nimbella-s3 --source https://mirror.example.com/libs
	nimsdk --static serve --listen-addr :8080

Settings default to the variables the SDK reads at runtime (__OW_NAMESPACE,
__OW_API_HOST, __NIM_STORAGE_KEY, NIMBELLA_SDK_PREFIX and friends), so inside
a function container no flags are needed. --static uses the providers linked
into the binary instead of loading shared libraries.
*/
package main
