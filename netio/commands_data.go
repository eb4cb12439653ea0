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

package netio

import (
	"strconv"

	"github.com/ekjotsingh/kvserver/binlog"
	"github.com/ekjotsingh/kvserver/store"
)

// RegisterStoreCommands binds every typed KV/HASH/ZSET/QUEUE command
// to st, matching spec.md §4.5's FLAG_READ/FLAG_WRITE/FLAG_THREAD
// taxonomy: reads run inline, writes that touch the binlog mutex are
// marked FLAG_THREAD|FLAG_WRITE so a slow write cannot stall this
// link's read loop, mirroring the original routing writes onto the
// single writer thread.
func RegisterStoreCommands(procs *ProcMap, st *store.Store) {
	procs.Register("get", FlagRead|FlagRangeGated, func(_ *Link, req *Request) *Response {
		if len(req.Args) != 1 {
			return Err(StatusClientError, "get requires 1 argument")
		}
		val, ok, err := st.Get(req.Args[0])
		if err != nil {
			return Err(StatusError, err.Error())
		}
		if !ok {
			return &Response{Status: StatusNotFound}
		}
		return OK(val)
	})

	procs.Register("set", FlagWrite|FlagThread|FlagRangeGated, func(_ *Link, req *Request) *Response {
		if len(req.Args) != 2 {
			return Err(StatusClientError, "set requires 2 arguments")
		}
		if err := st.Set(binlog.SYNC, req.Args[0], req.Args[1]); err != nil {
			return Err(StatusError, err.Error())
		}
		return OK([]byte("1"))
	})

	procs.Register("del", FlagWrite|FlagThread|FlagRangeGated, func(_ *Link, req *Request) *Response {
		if len(req.Args) != 1 {
			return Err(StatusClientError, "del requires 1 argument")
		}
		if err := st.Del(binlog.SYNC, req.Args[0]); err != nil {
			return Err(StatusError, err.Error())
		}
		return OK([]byte("1"))
	})

	procs.Register("incr", FlagWrite|FlagThread|FlagRangeGated, func(_ *Link, req *Request) *Response {
		if len(req.Args) < 1 || len(req.Args) > 2 {
			return Err(StatusClientError, "incr requires 1 or 2 arguments")
		}
		by := int64(1)
		if len(req.Args) == 2 {
			n, err := strconv.ParseInt(string(req.Args[1]), 10, 64)
			if err != nil {
				return Err(StatusClientError, "malformed increment")
			}
			by = n
		}
		next, err := st.Incr(binlog.SYNC, req.Args[0], by)
		if err != nil {
			return Err(StatusError, err.Error())
		}
		return OK([]byte(strconv.FormatInt(next, 10)))
	})

	procs.Register("keys", FlagRead|FlagRangeGated, func(_ *Link, req *Request) *Response {
		var start, end []byte
		limit := -1
		if len(req.Args) > 0 {
			start = req.Args[0]
		}
		if len(req.Args) > 1 {
			end = req.Args[1]
		}
		if len(req.Args) > 2 {
			if n, err := strconv.Atoi(string(req.Args[2])); err == nil {
				limit = n
			}
		}
		ks, err := st.Keys(start, end, limit)
		if err != nil {
			return Err(StatusError, err.Error())
		}
		return OK(ks...)
	})

	procs.Register("multi_set", FlagWrite|FlagThread|FlagRangeGated, func(_ *Link, req *Request) *Response {
		if len(req.Args) == 0 || len(req.Args)%2 != 0 {
			return Err(StatusClientError, "multi_set requires an even number of arguments")
		}
		pairs := make(map[string][]byte, len(req.Args)/2)
		for i := 0; i < len(req.Args); i += 2 {
			pairs[string(req.Args[i])] = req.Args[i+1]
		}
		n, err := st.MultiSet(binlog.SYNC, pairs)
		if err != nil {
			return Err(StatusError, err.Error())
		}
		return OK([]byte(strconv.Itoa(n)))
	})

	procs.Register("multi_del", FlagWrite|FlagThread|FlagRangeGated, func(_ *Link, req *Request) *Response {
		if len(req.Args) == 0 {
			return Err(StatusClientError, "multi_del requires at least 1 argument")
		}
		n, err := st.MultiDel(binlog.SYNC, req.Args)
		if err != nil {
			return Err(StatusError, err.Error())
		}
		return OK([]byte(strconv.Itoa(n)))
	})

	registerHashCommands(procs, st)
	registerZSetCommands(procs, st)
	registerQueueCommands(procs, st)
}

func registerHashCommands(procs *ProcMap, st *store.Store) {
	procs.Register("hget", FlagRead|FlagRangeGated, func(_ *Link, req *Request) *Response {
		if len(req.Args) != 2 {
			return Err(StatusClientError, "hget requires 2 arguments")
		}
		val, ok, err := st.HGet(req.Args[0], req.Args[1])
		if err != nil {
			return Err(StatusError, err.Error())
		}
		if !ok {
			return &Response{Status: StatusNotFound}
		}
		return OK(val)
	})

	procs.Register("hset", FlagWrite|FlagThread|FlagRangeGated, func(_ *Link, req *Request) *Response {
		if len(req.Args) != 3 {
			return Err(StatusClientError, "hset requires 3 arguments")
		}
		res, err := st.HSet(binlog.SYNC, req.Args[0], req.Args[1], req.Args[2])
		if err != nil {
			return Err(StatusError, err.Error())
		}
		return OK([]byte(strconv.Itoa(int(res))))
	})

	procs.Register("hdel", FlagWrite|FlagThread|FlagRangeGated, func(_ *Link, req *Request) *Response {
		if len(req.Args) != 2 {
			return Err(StatusClientError, "hdel requires 2 arguments")
		}
		if err := st.HDel(binlog.SYNC, req.Args[0], req.Args[1]); err != nil {
			return Err(StatusError, err.Error())
		}
		return OK([]byte("1"))
	})

	procs.Register("hincr", FlagWrite|FlagThread|FlagRangeGated, func(_ *Link, req *Request) *Response {
		if len(req.Args) < 2 || len(req.Args) > 3 {
			return Err(StatusClientError, "hincr requires 2 or 3 arguments")
		}
		by := int64(1)
		if len(req.Args) == 3 {
			n, err := strconv.ParseInt(string(req.Args[2]), 10, 64)
			if err != nil {
				return Err(StatusClientError, "malformed increment")
			}
			by = n
		}
		next, err := st.HIncr(binlog.SYNC, req.Args[0], req.Args[1], by)
		if err != nil {
			return Err(StatusError, err.Error())
		}
		return OK([]byte(strconv.FormatInt(next, 10)))
	})

	procs.Register("hsize", FlagRead|FlagRangeGated, func(_ *Link, req *Request) *Response {
		if len(req.Args) != 1 {
			return Err(StatusClientError, "hsize requires 1 argument")
		}
		n, err := st.HSize(req.Args[0])
		if err != nil {
			return Err(StatusError, err.Error())
		}
		return OK([]byte(strconv.FormatInt(n, 10)))
	})

	procs.Register("hscan", FlagRead|FlagRangeGated, func(_ *Link, req *Request) *Response {
		if len(req.Args) < 1 {
			return Err(StatusClientError, "hscan requires at least 1 argument")
		}
		name := req.Args[0]
		var start, end []byte
		limit := -1
		if len(req.Args) > 1 {
			start = req.Args[1]
		}
		if len(req.Args) > 2 {
			end = req.Args[2]
		}
		if len(req.Args) > 3 {
			if n, err := strconv.Atoi(string(req.Args[3])); err == nil {
				limit = n
			}
		}
		pairs, err := st.HScan(name, start, end, limit)
		if err != nil {
			return Err(StatusError, err.Error())
		}
		var out [][]byte
		for _, p := range pairs {
			out = append(out, p[0], p[1])
		}
		return OK(out...)
	})
}

func registerZSetCommands(procs *ProcMap, st *store.Store) {
	procs.Register("zget", FlagRead|FlagRangeGated, func(_ *Link, req *Request) *Response {
		if len(req.Args) != 2 {
			return Err(StatusClientError, "zget requires 2 arguments")
		}
		score, ok, err := st.ZGet(req.Args[0], req.Args[1])
		if err != nil {
			return Err(StatusError, err.Error())
		}
		if !ok {
			return &Response{Status: StatusNotFound}
		}
		return OK([]byte(strconv.FormatInt(score, 10)))
	})

	procs.Register("zset", FlagWrite|FlagThread|FlagRangeGated, func(_ *Link, req *Request) *Response {
		if len(req.Args) != 3 {
			return Err(StatusClientError, "zset requires 3 arguments")
		}
		score, err := strconv.ParseInt(string(req.Args[2]), 10, 64)
		if err != nil {
			return Err(StatusClientError, "malformed score")
		}
		res, err := st.ZSet(binlog.SYNC, req.Args[0], req.Args[1], score)
		if err != nil {
			return Err(StatusError, err.Error())
		}
		return OK([]byte(strconv.Itoa(int(res))))
	})

	procs.Register("zdel", FlagWrite|FlagThread|FlagRangeGated, func(_ *Link, req *Request) *Response {
		if len(req.Args) != 2 {
			return Err(StatusClientError, "zdel requires 2 arguments")
		}
		if err := st.ZDel(binlog.SYNC, req.Args[0], req.Args[1]); err != nil {
			return Err(StatusError, err.Error())
		}
		return OK([]byte("1"))
	})

	procs.Register("zincr", FlagWrite|FlagThread|FlagRangeGated, func(_ *Link, req *Request) *Response {
		if len(req.Args) != 3 {
			return Err(StatusClientError, "zincr requires 3 arguments")
		}
		by, err := strconv.ParseInt(string(req.Args[2]), 10, 64)
		if err != nil {
			return Err(StatusClientError, "malformed increment")
		}
		next, err := st.ZIncr(binlog.SYNC, req.Args[0], req.Args[1], by)
		if err != nil {
			return Err(StatusError, err.Error())
		}
		return OK([]byte(strconv.FormatInt(next, 10)))
	})

	procs.Register("zsize", FlagRead|FlagRangeGated, func(_ *Link, req *Request) *Response {
		if len(req.Args) != 1 {
			return Err(StatusClientError, "zsize requires 1 argument")
		}
		n, err := st.ZSize(req.Args[0])
		if err != nil {
			return Err(StatusError, err.Error())
		}
		return OK([]byte(strconv.FormatInt(n, 10)))
	})

	procs.Register("zrank", FlagRead|FlagRangeGated, func(_ *Link, req *Request) *Response {
		if len(req.Args) != 2 {
			return Err(StatusClientError, "zrank requires 2 arguments")
		}
		rank, err := st.ZRank(req.Args[0], req.Args[1])
		if err != nil {
			return Err(StatusError, err.Error())
		}
		return OK([]byte(strconv.FormatInt(rank, 10)))
	})

	procs.Register("zrrank", FlagRead|FlagRangeGated, func(_ *Link, req *Request) *Response {
		if len(req.Args) != 2 {
			return Err(StatusClientError, "zrrank requires 2 arguments")
		}
		rank, err := st.ZRRank(req.Args[0], req.Args[1])
		if err != nil {
			return Err(StatusError, err.Error())
		}
		return OK([]byte(strconv.FormatInt(rank, 10)))
	})

	procs.Register("zrange", FlagRead|FlagRangeGated, zrangeHandler(st, false))
	procs.Register("zrrange", FlagRead|FlagRangeGated, zrangeHandler(st, true))

	procs.Register("zrangebyscore", FlagRead|FlagRangeGated, func(_ *Link, req *Request) *Response {
		if len(req.Args) < 3 {
			return Err(StatusClientError, "zrangebyscore requires at least 3 arguments")
		}
		minScore, err := strconv.ParseInt(string(req.Args[1]), 10, 64)
		if err != nil {
			return Err(StatusClientError, "malformed min score")
		}
		maxScore, err := strconv.ParseInt(string(req.Args[2]), 10, 64)
		if err != nil {
			return Err(StatusClientError, "malformed max score")
		}
		limit := -1
		if len(req.Args) > 3 {
			if n, err := strconv.Atoi(string(req.Args[3])); err == nil {
				limit = n
			}
		}
		entries, err := st.ZRangeByScore(req.Args[0], minScore, maxScore, limit)
		if err != nil {
			return Err(StatusError, err.Error())
		}
		return OK(flattenZRange(entries)...)
	})
}

func zrangeHandler(st *store.Store, reverse bool) Handler {
	return func(_ *Link, req *Request) *Response {
		if len(req.Args) != 3 {
			return Err(StatusClientError, "zrange requires 3 arguments")
		}
		start, err := strconv.ParseInt(string(req.Args[1]), 10, 64)
		if err != nil {
			return Err(StatusClientError, "malformed start rank")
		}
		stop, err := strconv.ParseInt(string(req.Args[2]), 10, 64)
		if err != nil {
			return Err(StatusClientError, "malformed stop rank")
		}
		var entries []store.ZRangeEntry
		if reverse {
			entries, err = st.ZRRange(req.Args[0], start, stop)
		} else {
			entries, err = st.ZRange(req.Args[0], start, stop)
		}
		if err != nil {
			return Err(StatusError, err.Error())
		}
		return OK(flattenZRange(entries)...)
	}
}

func flattenZRange(entries []store.ZRangeEntry) [][]byte {
	out := make([][]byte, 0, len(entries)*2)
	for _, e := range entries {
		out = append(out, e.Key, []byte(strconv.FormatInt(e.Score, 10)))
	}
	return out
}

func registerQueueCommands(procs *ProcMap, st *store.Store) {
	procs.Register("qpush_back", FlagWrite|FlagThread|FlagRangeGated, func(_ *Link, req *Request) *Response {
		if len(req.Args) != 2 {
			return Err(StatusClientError, "qpush_back requires 2 arguments")
		}
		n, err := st.QPushBack(binlog.SYNC, req.Args[0], req.Args[1])
		if err != nil {
			return Err(StatusError, err.Error())
		}
		return OK([]byte(strconv.FormatInt(n, 10)))
	})

	procs.Register("qpush_front", FlagWrite|FlagThread|FlagRangeGated, func(_ *Link, req *Request) *Response {
		if len(req.Args) != 2 {
			return Err(StatusClientError, "qpush_front requires 2 arguments")
		}
		n, err := st.QPushFront(binlog.SYNC, req.Args[0], req.Args[1])
		if err != nil {
			return Err(StatusError, err.Error())
		}
		return OK([]byte(strconv.FormatInt(n, 10)))
	})

	procs.Register("qpop_back", FlagWrite|FlagThread|FlagRangeGated, func(_ *Link, req *Request) *Response {
		if len(req.Args) != 1 {
			return Err(StatusClientError, "qpop_back requires 1 argument")
		}
		val, ok, err := st.QPopBack(binlog.SYNC, req.Args[0])
		if err != nil {
			return Err(StatusError, err.Error())
		}
		if !ok {
			return &Response{Status: StatusNotFound}
		}
		return OK(val)
	})

	procs.Register("qpop_front", FlagWrite|FlagThread|FlagRangeGated, func(_ *Link, req *Request) *Response {
		if len(req.Args) != 1 {
			return Err(StatusClientError, "qpop_front requires 1 argument")
		}
		val, ok, err := st.QPopFront(binlog.SYNC, req.Args[0])
		if err != nil {
			return Err(StatusError, err.Error())
		}
		if !ok {
			return &Response{Status: StatusNotFound}
		}
		return OK(val)
	})

	procs.Register("qfront", FlagRead|FlagRangeGated, func(_ *Link, req *Request) *Response {
		if len(req.Args) != 1 {
			return Err(StatusClientError, "qfront requires 1 argument")
		}
		val, ok, err := st.QFront(req.Args[0])
		if err != nil {
			return Err(StatusError, err.Error())
		}
		if !ok {
			return &Response{Status: StatusNotFound}
		}
		return OK(val)
	})

	procs.Register("qback", FlagRead|FlagRangeGated, func(_ *Link, req *Request) *Response {
		if len(req.Args) != 1 {
			return Err(StatusClientError, "qback requires 1 argument")
		}
		val, ok, err := st.QBack(req.Args[0])
		if err != nil {
			return Err(StatusError, err.Error())
		}
		if !ok {
			return &Response{Status: StatusNotFound}
		}
		return OK(val)
	})

	procs.Register("qsize", FlagRead|FlagRangeGated, func(_ *Link, req *Request) *Response {
		if len(req.Args) != 1 {
			return Err(StatusClientError, "qsize requires 1 argument")
		}
		n, err := st.QSize(req.Args[0])
		if err != nil {
			return Err(StatusError, err.Error())
		}
		return OK([]byte(strconv.FormatInt(n, 10)))
	})

	procs.Register("qslice", FlagRead|FlagRangeGated, func(_ *Link, req *Request) *Response {
		if len(req.Args) != 3 {
			return Err(StatusClientError, "qslice requires 3 arguments")
		}
		offset, err := strconv.ParseInt(string(req.Args[1]), 10, 64)
		if err != nil {
			return Err(StatusClientError, "malformed offset")
		}
		count, err := strconv.ParseInt(string(req.Args[2]), 10, 64)
		if err != nil {
			return Err(StatusClientError, "malformed count")
		}
		items, err := st.QSlice(req.Args[0], offset, count)
		if err != nil {
			return Err(StatusError, err.Error())
		}
		return OK(items...)
	})

	procs.Register("qfix", FlagWrite|FlagThread|FlagRangeGated, func(_ *Link, req *Request) *Response {
		if len(req.Args) != 1 {
			return Err(StatusClientError, "qfix requires 1 argument")
		}
		n, err := st.QFix(req.Args[0])
		if err != nil {
			return Err(StatusError, err.Error())
		}
		return OK([]byte(strconv.FormatInt(n, 10)))
	})
}
