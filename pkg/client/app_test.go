package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func viewByID(t *testing.T, views []View, id string) View {
	t.Helper()
	for _, v := range views {
		if v.ID == id {
			return v
		}
	}
	t.Fatalf("no view %q", id)
	return View{}
}

func newTestApp(t *testing.T, prompter Prompter) (*App, string, func(p string) string) {
	t.Helper()
	srv, s := newFileServer(t)

	read := func(p string) string {
		rc, err := s.Open(context.Background(), p)
		require.NoError(t, err)
		defer func() { _ = rc.Close() }()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(data)
	}

	writeFile(t, s, "content/notes.txt", "first")
	require.NoError(t, s.Mkdir(context.Background(), "content/archive"))

	base := srv.URL + "/content"
	app := NewApp(NewFetcher(srv.Client(), DefaultRetryPolicy()), prompter, base)
	require.NoError(t, app.Start(context.Background()))
	return app, base, read
}

func TestApp_Start(t *testing.T) {
	app, base, _ := newTestApp(t, nil)

	assert.True(t, app.Started())
	st := app.State()
	assert.Equal(t, []string{"archive", "notes.txt"}, st.Items)
	assert.Equal(t, "archive", st.SelectedItem)
	assert.Equal(t, base, st.URL)
	assert.Equal(t, "/", app.Breadcrumb())
	assert.Equal(t, "", app.Editor())

	views := app.Views()
	require.Len(t, views, 7)
	ids := make([]string, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	assert.Equal(t, []string{
		ControlItemSelect, ControlOpen, ControlBack, ControlSave,
		ControlCreateFile, ControlCreateDirectory, ControlDelete,
	}, ids)

	sel := views[0]
	assert.Equal(t, []string{"archive", "notes.txt"}, sel.Options)
	assert.Equal(t, "archive", sel.Value)
	assert.Equal(t, FolderIcon, sel.Icon)

	assert.True(t, viewByID(t, views, ControlOpen).Enabled)
	assert.False(t, viewByID(t, views, ControlBack).Enabled)
	assert.False(t, viewByID(t, views, ControlSave).Enabled)
	assert.True(t, viewByID(t, views, ControlDelete).Enabled)
}

func TestApp_EditAndSave(t *testing.T) {
	app, _, read := newTestApp(t, nil)
	ctx := context.Background()

	require.NoError(t, app.Trigger(ctx, ControlItemSelect, Event{Value: "notes.txt"}))
	assert.Equal(t, "first", app.Editor())
	assert.Equal(t, FileIcon, viewByID(t, app.Views(), ControlItemSelect).Icon)
	assert.True(t, viewByID(t, app.Views(), ControlSave).Enabled)
	assert.False(t, viewByID(t, app.Views(), ControlOpen).Enabled)

	require.NoError(t, app.Dispatch(ctx, SetContent{Text: "second"}))
	assert.Equal(t, "first", read("content/notes.txt"))

	require.NoError(t, app.Trigger(ctx, ControlSave, Event{}))
	assert.Equal(t, "second", read("content/notes.txt"))
	assert.Equal(t, "second", app.Editor())
}

func TestApp_CreateDirectoryAndNavigate(t *testing.T) {
	prompter := &QueuedPrompter{}
	app, base, _ := newTestApp(t, prompter)
	ctx := context.Background()

	prompter.Push("sub")
	require.NoError(t, app.Trigger(ctx, ControlCreateDirectory, Event{}))
	st := app.State()
	assert.Equal(t, []string{"archive", "notes.txt", "sub"}, st.Items)
	assert.Equal(t, "sub", st.SelectedItem)
	assert.True(t, st.Content.IsDirectory())

	require.NoError(t, app.Trigger(ctx, ControlOpen, Event{}))
	st = app.State()
	assert.Equal(t, base+"/sub", st.URL)
	assert.Empty(t, st.Items)
	assert.Equal(t, "", st.SelectedItem)
	assert.Equal(t, "/sub", app.Breadcrumb())
	assert.Equal(t, EmptyIcon, viewByID(t, app.Views(), ControlItemSelect).Icon)
	assert.True(t, viewByID(t, app.Views(), ControlBack).Enabled)
	assert.False(t, viewByID(t, app.Views(), ControlDelete).Enabled)

	prompter.Push("inner.txt")
	require.NoError(t, app.Trigger(ctx, ControlCreateFile, Event{}))
	assert.Equal(t, []string{"inner.txt"}, app.State().Items)

	require.NoError(t, app.Trigger(ctx, ControlBack, Event{}))
	st = app.State()
	assert.Equal(t, base, st.URL)
	assert.Equal(t, "sub", st.SelectedItem)
	assert.Equal(t, Content{Type: ContentDirectory, Value: "inner.txt"}, st.Content)
	assert.Equal(t, "/", app.Breadcrumb())
}

func TestApp_BackAtRootIsIgnored(t *testing.T) {
	app, _, _ := newTestApp(t, nil)
	before := app.State()

	require.NoError(t, app.Trigger(context.Background(), ControlBack, Event{}))
	assert.Equal(t, before, app.State())
}

func TestApp_Delete(t *testing.T) {
	app, _, _ := newTestApp(t, nil)
	ctx := context.Background()

	require.NoError(t, app.Trigger(ctx, ControlDelete, Event{}))
	st := app.State()
	assert.Equal(t, []string{"notes.txt"}, st.Items)
	assert.Equal(t, "notes.txt", st.SelectedItem)
	assert.Equal(t, "first", app.Editor())

	// The server agrees.
	require.NoError(t, app.Start(ctx))
	assert.Equal(t, []string{"notes.txt"}, app.State().Items)
}

func TestApp_Subscribe(t *testing.T) {
	app, _, _ := newTestApp(t, nil)

	var got []State
	app.Subscribe(func(s State) { got = append(got, s) })

	ctx := context.Background()
	require.NoError(t, app.Dispatch(ctx, SetSelectedOption{Item: "notes.txt"}))
	require.NoError(t, app.Dispatch(ctx, Save{}))

	require.Len(t, got, 1)
	assert.Equal(t, "notes.txt", got[0].SelectedItem)
}

func TestApp_UnknownControl(t *testing.T) {
	app, _, _ := newTestApp(t, nil)
	assert.Error(t, app.Trigger(context.Background(), "nope", Event{}))
}

func TestApp_CommandFailureKeepsState(t *testing.T) {
	remote := sampleRemote()
	failure := errors.New("disk full")
	remote.fail[http.MethodPut+" "+root+"/readme.txt"] = failure

	app := NewApp(remote, nil, root)
	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	require.NoError(t, app.Dispatch(ctx, SetSelectedOption{Item: "readme.txt"}))
	require.NoError(t, app.Dispatch(ctx, SetContent{Text: "unsaved"}))

	var failed []Command
	app.OnCommandError(func(cmd Command, err error) {
		assert.ErrorIs(t, err, failure)
		failed = append(failed, cmd)
	})

	require.NoError(t, app.Dispatch(ctx, Save{}))
	assert.Equal(t, []Command{{Method: http.MethodPut, URL: root + "/readme.txt", Body: "unsaved"}}, failed)
	assert.Equal(t, "unsaved", app.Editor())
}

func TestApp_FetchErrorKeepsState(t *testing.T) {
	remote := sampleRemote()
	app := NewApp(remote, nil, root)
	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	before := app.State()

	err := app.Dispatch(ctx, SetSelectedOption{Item: "missing"})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, before, app.State())
}

func TestApp_StartFails(t *testing.T) {
	app := NewApp(newFakeRemote(), nil, root)
	assert.Error(t, app.Start(context.Background()))
	assert.False(t, app.Started())
}

func TestApp_BreadcrumbUnescapes(t *testing.T) {
	remote := newFakeRemote().
		dir(root, "my docs").
		dir(root+"/my%20docs")
	app := NewApp(remote, nil, root)
	ctx := context.Background()

	require.NoError(t, app.Start(ctx))
	require.NoError(t, app.Dispatch(ctx, Open{}))
	assert.Equal(t, "/my docs", app.Breadcrumb())

	require.NoError(t, app.Dispatch(ctx, Back{}))
	assert.Equal(t, "my docs", app.State().SelectedItem)
}

// blockingRemote holds every PUT until release is closed.
type blockingRemote struct {
	*fakeRemote
	started chan struct{}
	release chan struct{}
}

func (b *blockingRemote) Do(ctx context.Context, method, u, body string) (Content, error) {
	if method == http.MethodPut {
		close(b.started)
		select {
		case <-b.release:
		case <-ctx.Done():
			return Content{}, ctx.Err()
		}
	}
	return b.fakeRemote.Do(ctx, method, u, body)
}

func TestApp_ReadersDoNotWaitForCommands(t *testing.T) {
	remote := &blockingRemote{
		fakeRemote: sampleRemote(),
		started:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	app := NewApp(remote, nil, root)
	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	require.NoError(t, app.Dispatch(ctx, SetSelectedOption{Item: "readme.txt"}))

	done := make(chan error, 1)
	go func() { done <- app.Dispatch(ctx, Save{}) }()
	<-remote.started

	read := make(chan struct{})
	go func() {
		defer close(read)
		_ = app.Views()
		_ = app.Breadcrumb()
		_ = app.State()
		_ = app.Editor()
	}()

	select {
	case <-read:
	case <-time.After(5 * time.Second):
		t.Fatal("readers blocked while a command was in flight")
	}

	close(remote.release)
	require.NoError(t, <-done)
	assert.Contains(t, remote.Requests(), http.MethodPut+" "+root+"/readme.txt")
}

func TestApp_SubscriberMayReadState(t *testing.T) {
	app := NewApp(sampleRemote(), nil, root)

	var seen []string
	app.Subscribe(func(s State) {
		seen = append(seen, app.State().SelectedItem)
	})

	done := make(chan error, 1)
	go func() { done <- app.Start(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("subscriber deadlocked on State")
	}
	assert.Equal(t, []string{"docs"}, seen)
}
