package e2e_test

import (
	"context"
	"net/http"
)

func (s *basicSuite) TestStartupProbe() {
	resp, err := s.client.Get(context.Background(), startupPath)
	s.Require().NoError(err)

	s.Equal(http.StatusNoContent, resp.StatusCode)
	s.Empty(resp.RawBody)
}

func (s *basicSuite) TestLivenessProbe() {
	resp, err := s.client.Get(context.Background(), livenessPath)
	s.Require().NoError(err)

	s.Equal(http.StatusNoContent, resp.StatusCode)
	s.Empty(resp.RawBody)
}

func (s *basicSuite) TestReadinessProbe() {
	resp, err := s.client.Get(context.Background(), readinessPath)
	s.Require().NoError(err)

	s.Equal(http.StatusNoContent, resp.StatusCode)
}

func (s *basicSuite) TestHealthz() {
	resp, err := s.client.Get(context.Background(), "/healthz")
	s.Require().NoError(err)

	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("healthy", resp.Body["status"])
}
