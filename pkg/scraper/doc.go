// Package scraper drives a scrape run: for every account it walks the mirror
// list until one mirror returns posts, tags those posts with the account, and
// waits a fixed delay before moving to the next account.
//
// A mirror that fails triggers a short cooldown before the next mirror is
// tried. A mirror that answers with no posts is skipped immediately. An
// account for which every mirror fails contributes no records but never stops
// the run; neither does a panic while handling one account.
//
// Usage:
//
//	s, err := scraper.New(cfg)
//	if err != nil {
//	    return err
//	}
//	result := s.Run(ctx, cfg.Accounts, pool.Endpoints(), cfg.PostsPerAccount, cfg.AccountDelay)
//	fmt.Println(len(result.Records))
//
// Cancelling ctx stops the run at the next fetch or pause; the records
// gathered so far are still returned.
package scraper
