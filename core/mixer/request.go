package mixer

import (
	"context"
	"errors"

	"DHX/core/resolver"
	"DHX/logger"
	"DHX/model"
)

// RequestTrack 解析点歌并等待确认
// 解析在循环外执行；期间被取消或被新请求取代时返回 ErrRequestCancelled 并丢弃结果
func (c *Coordinator) RequestTrack(ctx context.Context, query string) (model.Track, error) {
	var seq uint64
	if err := c.do(func() {
		c.requestSeq++
		seq = c.requestSeq
		c.searching = true
		c.changed()
	}); err != nil {
		return model.Track{}, err
	}

	var (
		res *resolver.Resolution
		err error
	)
	if c.resolver == nil {
		err = &resolver.ResolutionError{Query: query, Err: resolver.ErrNoResolver}
	} else {
		res, err = c.resolver.Resolve(ctx, query)
	}

	var t model.Track
	loopErr := c.doErr(func() error {
		if seq != c.requestSeq || !c.searching {
			logger.Info("discarding late resolution", logger.String("query", query))
			return ErrRequestCancelled
		}
		c.searching = false
		if err != nil {
			c.changed()
			return err
		}
		t = c.stagePending(res)
		c.changed()
		return nil
	})
	if loopErr != nil {
		if !errors.Is(loopErr, ErrRequestCancelled) && !errors.Is(loopErr, ErrStopped) {
			logger.Warn("track request failed",
				logger.String("query", query),
				logger.ErrorField(loopErr))
		}
		return model.Track{}, loopErr
	}

	if t.Analyzing {
		c.analyzeRemote(context.WithoutCancel(ctx), t.ID, t.AudioSource)
	}
	return t, nil
}

// stagePending 将解析结果设为待确认曲目
func (c *Coordinator) stagePending(res *resolver.Resolution) model.Track {
	t := model.NewTrack("ai-"+c.newID(), res.Title, res.Artist, res.URL)
	if t.Artist == "" {
		t.Artist = model.UnknownArtist
	}
	t.Source = res.Source
	t.Duration = res.Duration
	t.Analyzing = res.Source == model.SourceSpotify && c.analyzer != nil

	c.addToLibrary(t)
	c.pending = &pendingTrack{track: t, countdown: c.cfg.ConfirmSeconds}
	logger.Info("track awaiting confirmation",
		logger.String("trackId", t.ID),
		logger.String("title", t.Title),
		logger.String("source", t.Source))
	return t
}

func (c *Coordinator) analyzeRemote(ctx context.Context, id, url string) {
	go func() {
		res := c.analyzer.AnalyzeURL(ctx, url)
		c.post(func() { c.applyAnalysis(id, res) })
	}()
}

// CancelRequest 放弃进行中的请求，迟到的结果会被忽略
func (c *Coordinator) CancelRequest() error {
	return c.do(func() {
		if !c.searching {
			return
		}
		c.searching = false
		c.requestSeq++
		c.changed()
	})
}

// ConfirmPending 将待确认曲目加入队尾
func (c *Coordinator) ConfirmPending() error {
	return c.doErr(func() error {
		if c.pending == nil {
			return ErrNoPendingTrack
		}
		c.confirmPending()
		c.changed()
		return nil
	})
}

func (c *Coordinator) confirmPending() {
	t := c.pending.track
	c.pending = nil
	c.enqueue(t)
	c.fillDecks()
	logger.Info("pending track confirmed", logger.String("trackId", t.ID))
}

// CancelPending 丢弃待确认曲目，曲库中保留
func (c *Coordinator) CancelPending() error {
	return c.doErr(func() error {
		if c.pending == nil {
			return ErrNoPendingTrack
		}
		c.pending = nil
		c.changed()
		return nil
	})
}

// tick 推进确认倒计时，归零时自动确认
func (c *Coordinator) tick() {
	if c.pending == nil {
		return
	}
	c.pending.countdown--
	if c.pending.countdown <= 0 {
		c.confirmPending()
	}
	c.changed()
}
