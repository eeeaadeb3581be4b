// Copyright (c) 2018 The VeChainThor developers

// Package state manages the world state: accounts, storage and code.
// It follows the flow as below:
//
//	           o
//	           |
//	  [ revertable state ]
//	           |
//	    [ stacked map ] -> [ journal ] -> [ playback(staging) ] -> [ updated trie ]
//	           |
//	     [ trie cache ]
//	           |
//	   [ read-only trie ] -> [ fork cache ]
//
// Reads see the innermost checkpoint first, then outer checkpoints, then the
// committed trie, then the remote chain when forked, then zero values.
//
// When forked, absence in the local trie means "ask the remote", so a zeroed
// storage slot or an emptied account is kept as an explicit entry instead of
// being removed from the trie. An account deleted locally is marked detached,
// its storage no longer falls through to the remote.
package state
