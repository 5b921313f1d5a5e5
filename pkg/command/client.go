/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package command

import (
	"errors"
	"fmt"

	"github.com/imroc/req"

	"github.com/QiangWu769/ltediag/pkg/command/ifc"
	"github.com/QiangWu769/ltediag/pkg/config"
	"github.com/QiangWu769/ltediag/pkg/srv/session"
)

type ApiClient struct {
	*config.Config
	ApiPrefix string
}

var _ ifc.ApiClient = &ApiClient{}

func NewApiClient(cfg *config.Config) ifc.ApiClient {
	return &ApiClient{
		Config:    cfg,
		ApiPrefix: fmt.Sprintf("http://127.0.0.1:%d/api", session.ApiPort),
	}
}

// Status requests the running session's counters
func (c *ApiClient) Status() (*session.StatusResponse, error) {
	r, err := req.Get(fmt.Sprintf("%s/status", c.ApiPrefix))
	if err != nil {
		return nil, err
	}
	if r.Response().StatusCode != 200 {
		return nil, errors.New(r.Response().Status)
	}
	status := &session.StatusResponse{}
	if err := r.ToJSON(status); err != nil {
		return nil, err
	}
	return status, nil
}

// Flush asks the running session to write buffered rows out
func (c *ApiClient) Flush() error {
	r, err := req.Get(fmt.Sprintf("%s/flush", c.ApiPrefix))
	if err != nil {
		return err
	}
	if r.Response().StatusCode != 200 {
		return errors.New(r.Response().Status)
	}
	return nil
}

// Persist rotates the current report file
func (c *ApiClient) Persist(dir, filePrefix string) (string, error) {
	persist := &session.Persist{
		Dir:        dir,
		FilePrefix: filePrefix,
	}
	r, err := req.Post(fmt.Sprintf("%s/persist", c.ApiPrefix), req.BodyJSON(persist))
	if err != nil {
		return "", err
	}
	if r.Response().StatusCode != 200 {
		return "", errors.New(r.Response().Status)
	}
	result := map[string]string{}
	if err := r.ToJSON(&result); err != nil {
		return "", err
	}
	return result["file"], nil
}
