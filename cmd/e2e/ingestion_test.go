package e2e_test

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/adamkirk/panoptes/internal/httpclient"
)

func (s *basicSuite) TestGithubIngestionRoundTrip() {
	ctx := context.Background()
	deliveryID := newDeliveryID()

	resp, err := s.client.Do(ctx, httpclient.Request{
		Method: httpclient.MethodPOST,
		Path:   githubPath,
		Body: map[string]interface{}{
			"zen":     "Keep it logically awesome.",
			"hook_id": 12345,
		},
		Headers: map[string]string{
			"X-GitHub-Event":    "ping",
			"X-GitHub-Delivery": deliveryID,
		},
	})
	s.Require().NoError(err)
	s.Require().Equal(http.StatusNoContent, resp.StatusCode, string(resp.RawBody))
	s.Empty(resp.RawBody)

	resp, err = s.client.Get(ctx, githubPath+"/deliveries/"+deliveryID)
	s.Require().NoError(err)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var body deliveriesResponse
	s.Require().NoError(json.Unmarshal(resp.RawBody, &body))
	s.Require().Len(body.Data, 1)
	s.Equal("ping", body.Data[0].Event)
	s.Equal(deliveryID, body.Data[0].DeliveryID)
	s.Equal("Keep it logically awesome.", body.Data[0].Payload["zen"])
	s.NotEmpty(body.Data[0].ID)
}

func (s *basicSuite) TestGithubIngestionRedelivery() {
	ctx := context.Background()
	deliveryID := newDeliveryID()
	payload := fakePushPayload()

	for i := 0; i < 2; i++ {
		resp, err := s.client.Do(ctx, httpclient.Request{
			Method: httpclient.MethodPOST,
			Path:   githubPath,
			Body:   payload,
			Headers: map[string]string{
				"X-GitHub-Event":    "push",
				"X-GitHub-Delivery": deliveryID,
			},
		})
		s.Require().NoError(err)
		s.Require().Equal(http.StatusNoContent, resp.StatusCode, string(resp.RawBody))
	}

	resp, err := s.client.Get(ctx, githubPath+"/deliveries/"+deliveryID)
	s.Require().NoError(err)

	var body deliveriesResponse
	s.Require().NoError(json.Unmarshal(resp.RawBody, &body))
	s.Require().Len(body.Data, 2, "a redelivery is recorded as a second webhook")
	s.NotEqual(body.Data[0].ID, body.Data[1].ID)
	s.Equal(payload["ref"], body.Data[0].Payload["ref"])
	s.Equal(payload["ref"], body.Data[1].Payload["ref"])
}

func (s *basicSuite) TestGithubIngestionRejectsInvalidDelivery() {
	resp, err := s.client.Do(context.Background(), httpclient.Request{
		Method: httpclient.MethodPOST,
		Path:   githubPath,
		Body:   map[string]interface{}{"zen": "x"},
		Headers: map[string]string{
			"X-GitHub-Event":    "ping",
			"X-GitHub-Delivery": "not-a-guid",
		},
	})
	s.Require().NoError(err)
	s.Equal(http.StatusUnprocessableEntity, resp.StatusCode)
}

func (s *basicSuite) TestGithubIngestionRequiresEventHeader() {
	resp, err := s.client.Do(context.Background(), httpclient.Request{
		Method:  httpclient.MethodPOST,
		Path:    githubPath,
		Body:    map[string]interface{}{},
		Headers: map[string]string{"X-GitHub-Delivery": newDeliveryID()},
	})
	s.Require().NoError(err)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}
