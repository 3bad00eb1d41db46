package provider

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ruteri/serverless-sdk/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockLoader implements Loader for testing
type MockLoader struct {
	mock.Mock
}

func (m *MockLoader) Load(lib Library) (LoadFunc, error) {
	args := m.Called(lib)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(LoadFunc), args.Error(1)
}

type fakeProvider struct {
	id string
}

func (p *fakeProvider) Client(ctx context.Context, namespace, apiHost string, web bool, creds interfaces.CredentialBlob) (interfaces.StorageClient, error) {
	return nil, interfaces.NotImplemented("Client")
}

func (p *fakeProvider) PrepareCredentials(original interfaces.CredentialBlob) (interfaces.CredentialBlob, error) {
	return original, nil
}

func (p *fakeProvider) Identifier() string { return p.id }

type fakeMaker struct {
	p   interfaces.StorageProvider
	err error
}

func (m fakeMaker) Make() (interfaces.StorageProvider, error) { return m.p, m.err }

func entryPoint(v any) LoadFunc {
	return func() any { return v }
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) Config {
	return Config{Prefix: t.TempDir(), Suffix: ".so"}
}

func TestRegistry_Resolve_Memoizes(t *testing.T) {
	cfg := testConfig(t)
	s3 := &fakeProvider{id: interfaces.ProviderS3}

	loader := new(MockLoader)
	loader.On("Load", cfg.LibraryFor(LibraryS3)).Return(entryPoint(fakeMaker{p: s3}), nil).Once()

	reg := NewRegistry(cfg, loader, testLogger())

	first, err := reg.Resolve(interfaces.ProviderS3)
	require.NoError(t, err)
	second, err := reg.Resolve(interfaces.ProviderS3)
	require.NoError(t, err)

	assert.Same(t, s3, first)
	assert.Same(t, first, second)
	loader.AssertNumberOfCalls(t, "Load", 1)
	loader.AssertExpectations(t)
}

func TestRegistry_Resolve_UnknownProvider(t *testing.T) {
	loader := new(MockLoader)
	reg := NewRegistry(testConfig(t), loader, testLogger())

	p, err := reg.Resolve("@acme/storage-floppy")
	assert.Nil(t, p)
	assert.ErrorIs(t, err, interfaces.ErrUnknownProvider)
	assert.Contains(t, err.Error(), "@acme/storage-floppy")
	loader.AssertNotCalled(t, "Load", mock.Anything)
}

func TestRegistry_Resolve_FailuresAreNotCached(t *testing.T) {
	cfg := testConfig(t)
	gcs := &fakeProvider{id: interfaces.ProviderGCS}
	lib := cfg.LibraryFor(LibraryGCS)

	loader := new(MockLoader)
	loader.On("Load", lib).Return(nil, interfaces.CouldNotLoadProvider("no such file")).Once()
	loader.On("Load", lib).Return(entryPoint(fakeMaker{p: gcs}), nil).Once()

	reg := NewRegistry(cfg, loader, testLogger())

	_, err := reg.Resolve(interfaces.ProviderGCS)
	assert.ErrorIs(t, err, interfaces.ErrCouldNotLoadProvider)
	assert.Empty(t, reg.Providers())

	p, err := reg.Resolve(interfaces.ProviderGCS)
	require.NoError(t, err)
	assert.Same(t, gcs, p)
	loader.AssertNumberOfCalls(t, "Load", 2)
}

func TestRegistry_Resolve_Alias(t *testing.T) {
	cfg := testConfig(t)
	s3 := &fakeProvider{id: interfaces.ProviderS3}

	loader := new(MockLoader)
	loader.On("Load", cfg.LibraryFor(LibraryS3)).Return(entryPoint(fakeMaker{p: s3}), nil).Once()

	reg := NewRegistry(cfg, loader, testLogger())
	reg.AddLibrary("s3", LibraryS3)

	p, err := reg.Resolve("s3")
	require.NoError(t, err)
	assert.Same(t, s3, p)

	// Both the alias and the self-reported identifier are now cached.
	p, err = reg.Resolve(interfaces.ProviderS3)
	require.NoError(t, err)
	assert.Same(t, s3, p)
	p, err = reg.Resolve("s3")
	require.NoError(t, err)
	assert.Same(t, s3, p)

	assert.Equal(t, []string{interfaces.ProviderS3, "s3"}, reg.Providers())
	loader.AssertNumberOfCalls(t, "Load", 1)
}

type panickingMaker struct{}

func (panickingMaker) Make() (interfaces.StorageProvider, error) { panic("boom in Make") }

func TestRegistry_Resolve_ContractViolations(t *testing.T) {
	makerErr := errors.New("bad credentials format")

	tests := []struct {
		name     string
		entry    LoadFunc
		contains string
		wrapped  error
	}{
		{
			name:     "entry point returns wrong type",
			entry:    entryPoint("not a maker"),
			contains: "not a storage provider maker",
		},
		{
			name:     "entry point returns key-value maker",
			entry:    entryPoint(kvMaker{}),
			contains: "not a storage provider maker",
		},
		{
			name:     "entry point panics",
			entry:    func() any { panic("boom") },
			contains: "panicked: boom",
		},
		{
			name:     "maker fails",
			entry:    entryPoint(fakeMaker{err: makerErr}),
			contains: "bad credentials format",
			wrapped:  makerErr,
		},
		{
			name:     "maker returns nil",
			entry:    entryPoint(fakeMaker{}),
			contains: "maker returned no provider",
		},
		{
			name:     "maker panics",
			entry:    entryPoint(panickingMaker{}),
			contains: "maker panicked: boom in Make",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry(testConfig(t), StaticLoader{LibraryFile: tt.entry}, testLogger())

			p, err := reg.Resolve(interfaces.ProviderFile)
			assert.Nil(t, p)
			assert.ErrorIs(t, err, interfaces.ErrCouldNotLoadProvider)
			assert.Contains(t, err.Error(), tt.contains)
			if tt.wrapped != nil {
				assert.ErrorIs(t, err, tt.wrapped)
			}
		})
	}
}

func TestRegistry_Resolve_Concurrent(t *testing.T) {
	var loads atomic.Int32
	file := &fakeProvider{id: interfaces.ProviderFile}
	loader := StaticLoader{LibraryFile: func() any {
		loads.Add(1)
		return fakeMaker{p: file}
	}}
	reg := NewRegistry(testConfig(t), loader, testLogger())

	var wg sync.WaitGroup
	results := make([]interfaces.StorageProvider, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := reg.Resolve(interfaces.ProviderFile)
			assert.NoError(t, err)
			results[i] = p
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	for _, p := range results {
		assert.Same(t, file, p)
	}
}

func TestRegistry_Register(t *testing.T) {
	loader := new(MockLoader)
	reg := NewRegistry(testConfig(t), loader, testLogger())

	s3 := &fakeProvider{id: interfaces.ProviderS3}
	reg.Register(s3)

	p, err := reg.Resolve(interfaces.ProviderS3)
	require.NoError(t, err)
	assert.Same(t, s3, p)
	loader.AssertNotCalled(t, "Load", mock.Anything)
}

func TestRegistry_NilLoader(t *testing.T) {
	reg := NewRegistry(testConfig(t), nil, testLogger())
	_, err := reg.Resolve(interfaces.ProviderGCS)
	assert.ErrorIs(t, err, interfaces.ErrCouldNotLoadProvider)
}

func TestPluginLoader_MissingLibrary(t *testing.T) {
	cfg := testConfig(t)
	reg := NewRegistry(cfg, NewPluginLoader(), testLogger())

	_, err := reg.Resolve(interfaces.ProviderS3)
	assert.ErrorIs(t, err, interfaces.ErrCouldNotLoadProvider)
	assert.Contains(t, err.Error(), filepath.Join(cfg.Prefix, "libnimbella-s3.so"))
}

func TestStaticLoader_MissingEntry(t *testing.T) {
	_, err := StaticLoader{}.Load(Library{Name: LibraryGCS})
	assert.ErrorIs(t, err, interfaces.ErrCouldNotLoadProvider)
	assert.Contains(t, err.Error(), LibraryGCS)
}

func TestConfig(t *testing.T) {
	t.Run("library path", func(t *testing.T) {
		cfg := Config{Prefix: "/opt/lib", Suffix: ".dylib"}
		lib := cfg.LibraryFor(LibraryRedis)
		assert.Equal(t, LibraryRedis, lib.Name)
		assert.Equal(t, "/opt/lib/libnimbella-redis.dylib", lib.Path)
	})

	t.Run("defaults", func(t *testing.T) {
		t.Setenv(EnvLibraryPrefix, "")
		t.Setenv(EnvLibrarySuffix, "")
		cfg := ConfigFromEnv()
		assert.Equal(t, DefaultLibraryDir, cfg.Prefix)
		assert.Equal(t, PlatformSuffix(), cfg.Suffix)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv(EnvLibraryPrefix, "/srv/plugins")
		t.Setenv(EnvLibrarySuffix, ".plugin")
		cfg := ConfigFromEnv()
		assert.Equal(t, "/srv/plugins", cfg.Prefix)
		assert.Equal(t, ".plugin", cfg.Suffix)
	})
}
