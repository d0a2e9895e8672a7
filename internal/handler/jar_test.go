package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dumelo/kolo/internal/context"
	"github.com/dumelo/kolo/internal/repository"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func deleteJarRequest(t *testing.T, routeHandler *RouteHandler, jarID string, user *repository.User) *httptest.ResponseRecorder {
	t.Helper()

	req, err := http.NewRequest("DELETE", "/jars/"+jarID, nil)
	require.NoError(t, err)
	req.SetPathValue("id", jarID)
	req = context.ContextSetAuthenticatedUser(req, user)

	rr := httptest.NewRecorder()
	routeHandler.HandleDeleteJar(rr, req)

	return rr
}

func TestHandleDeleteJar_EmptyJarDeleted(t *testing.T) {
	routeHandler, mocks := newTestHandler()

	creator := &repository.User{ID: "creator-1", Role: repository.UserRoleMember}

	jar := &repository.Jar{
		ID:        "jar-1",
		Status:    repository.JarStatusOpen,
		CreatorID: "creator-1",
	}

	mocks.JarRepo.On("GetOne", "jar-1").Return(jar, true, nil)
	mocks.TransactionRepo.On("SumCompletedContributions", "jar-1").Return(0.00, nil)
	mocks.JarRepo.On("Delete", "jar-1").Return(nil)

	rr := deleteJarRequest(t, routeHandler, "jar-1", creator)

	require.Equal(t, http.StatusOK, rr.Code)
	mocks.JarRepo.AssertExpectations(t)
}

func TestHandleDeleteJar_JarWithFundsRejected(t *testing.T) {
	routeHandler, mocks := newTestHandler()

	creator := &repository.User{ID: "creator-1", Role: repository.UserRoleMember}

	jar := &repository.Jar{
		ID:        "jar-1",
		Status:    repository.JarStatusOpen,
		CreatorID: "creator-1",
	}

	mocks.JarRepo.On("GetOne", "jar-1").Return(jar, true, nil)
	mocks.TransactionRepo.On("SumCompletedContributions", "jar-1").Return(250.00, nil)

	rr := deleteJarRequest(t, routeHandler, "jar-1", creator)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	mocks.JarRepo.AssertNotCalled(t, "Delete", mock.Anything)
}

func TestHandleDeleteJar_FrozenJarRejected(t *testing.T) {
	routeHandler, mocks := newTestHandler()

	creator := &repository.User{ID: "creator-1", Role: repository.UserRoleMember}

	jar := &repository.Jar{
		ID:        "jar-1",
		Status:    repository.JarStatusFrozen,
		CreatorID: "creator-1",
	}

	mocks.JarRepo.On("GetOne", "jar-1").Return(jar, true, nil)

	rr := deleteJarRequest(t, routeHandler, "jar-1", creator)

	// the frozen gate fires before the balance is even checked
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	mocks.TransactionRepo.AssertNotCalled(t, "SumCompletedContributions", mock.Anything)
	mocks.JarRepo.AssertNotCalled(t, "Delete", mock.Anything)
}

func TestHandleDeleteJar_NonCreatorForbidden(t *testing.T) {
	routeHandler, mocks := newTestHandler()

	stranger := &repository.User{ID: "someone-else", Role: repository.UserRoleMember}

	jar := &repository.Jar{
		ID:        "jar-1",
		Status:    repository.JarStatusOpen,
		CreatorID: "creator-1",
	}

	mocks.JarRepo.On("GetOne", "jar-1").Return(jar, true, nil)

	rr := deleteJarRequest(t, routeHandler, "jar-1", stranger)

	require.Equal(t, http.StatusForbidden, rr.Code)
	mocks.JarRepo.AssertNotCalled(t, "Delete", mock.Anything)
}
