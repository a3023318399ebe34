package config

import (
	"net"
	"net/url"
	"os"
	"sync"
)

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// IsRunningInDocker returns true if the application is running inside a Docker container.
// Detection is based on the presence of /.dockerenv. The result is cached after the first call.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// ResolveHostForDocker maps localhost to host.docker.internal when running in a container,
// so services published on the host machine (Neo4j, Qdrant, Redis) stay reachable.
func ResolveHostForDocker(host string) string {
	if !IsRunningInDocker() {
		return host
	}
	return rewriteLocalhost(host)
}

// ResolveURIForDocker applies ResolveHostForDocker to the host part of a URI such as
// bolt://localhost:7687. Unparseable URIs are returned unchanged.
func ResolveURIForDocker(uri string) string {
	if !IsRunningInDocker() {
		return uri
	}
	return rewriteURIHost(uri)
}

func rewriteLocalhost(host string) string {
	if host == "localhost" || host == "127.0.0.1" {
		return "host.docker.internal"
	}
	return host
}

func rewriteURIHost(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Host == "" {
		return uri
	}
	hostname := u.Hostname()
	rewritten := rewriteLocalhost(hostname)
	if rewritten == hostname {
		return uri
	}
	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(rewritten, port)
	} else {
		u.Host = rewritten
	}
	return u.String()
}
