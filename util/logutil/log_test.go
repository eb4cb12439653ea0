// Copyright 2025 Ekjot Singh
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package logutil

import (
	"context"
	"testing"

	. "github.com/pingcap/check"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

func Test(t *testing.T) {
	TestingT(t)
}

var _ = Suite(&testLogSuite{})

type testLogSuite struct{}

func (s *testLogSuite) TestLevelForKnownAndUnknownNames(c *C) {
	c.Assert(levelFor("fatal"), Equals, logrus.FatalLevel)
	c.Assert(levelFor("warn"), Equals, logrus.WarnLevel)
	c.Assert(levelFor("warning"), Equals, logrus.WarnLevel)
	c.Assert(levelFor("debug"), Equals, logrus.DebugLevel)
	c.Assert(levelFor("info"), Equals, logrus.InfoLevel)
	c.Assert(levelFor("whatever"), Equals, logrus.InfoLevel)
}

func (s *testLogSuite) TestNewLogConfigCopiesPrimitiveFields(c *C) {
	conf := NewLogConfig("warn", DefaultLogFormat, "", EmptyFileLogConfig, false)
	c.Assert(conf.Level, Equals, "warn")
	c.Assert(conf.Format, Equals, DefaultLogFormat)
	c.Assert(conf.File, Equals, EmptyFileLogConfig)
}

func (s *testLogSuite) TestInitLoggerAcceptsNilConfig(c *C) {
	c.Assert(InitLogger(nil), IsNil)
}

func (s *testLogSuite) TestInitLoggerAcceptsExplicitConfig(c *C) {
	conf := NewLogConfig("info", DefaultLogFormat, "", EmptyFileLogConfig, false)
	c.Assert(InitLogger(conf), IsNil)
}

func (s *testLogSuite) TestWithKeyValueAccumulatesAcrossCalls(c *C) {
	ctx := context.Background()
	ctx = WithKeyValue(ctx, "worker", "1")
	ctx = WithKeyValue(ctx, "link", "abc")

	fields, _ := ctx.Value(ctxLogKey).([]zap.Field)
	c.Assert(fields, HasLen, 2)
	c.Assert(fields[0].Key, Equals, "worker")
	c.Assert(fields[1].Key, Equals, "link")
}

func (s *testLogSuite) TestLAndBgLoggerNeverReturnNil(c *C) {
	c.Assert(InitLogger(nil), IsNil)
	c.Assert(BgLogger(), NotNil)
	c.Assert(L(context.Background()), NotNil)
	c.Assert(L(WithKeyValue(context.Background(), "k", "v")), NotNil)
}
