package catalog

import "time"

// Built-in content. Seeded into the catalog store on first run; the store
// copy wins afterwards. Lines containing "{user}" are tagged with an active
// viewer at emission time.

func defaultPacks() map[string][]Variant {
	return map[string][]Variant{
		"ambient": {
			{ID: "amb_1", Tone: "casual", Persona: "night_owl", Lines: []Line{
				{Text: "這直播間今晚好安靜", Translation: "this stream is so quiet tonight"},
				{Text: "有人在看嗎", Translation: "anyone watching"},
			}},
			{ID: "amb_2", Tone: "bored", Persona: "lurker", Lines: []Line{
				{Text: "畫面好暗 調一下燈吧", Translation: "the feed is so dark, fix the lights"},
				{Text: "主播去哪了", Translation: "where did the streamer go"},
			}},
			{ID: "amb_3", Tone: "curious", Persona: "skeptic", Lines: []Line{
				{Text: "這棟樓真的鬧鬼嗎", Translation: "is this building really haunted"},
				{Text: "我覺得都是炒作", Translation: "i think it's all hype"},
			}},
		},
		"scene_reaction": {
			{ID: "scn_1", Tone: "alarmed", Persona: "believer", Lines: []Line{
				{Text: "等等 剛剛切畫面了？", Translation: "wait, did the camera just switch?"},
				{Text: "這個房間的感覺不對", Translation: "something is off about this room"},
			}},
			{ID: "scn_2", Tone: "excited", Persona: "thrill_seeker", Lines: []Line{
				{Text: "終於進地下室了！", Translation: "finally, the basement!"},
				{Text: "快看左邊的角落", Translation: "look at the left corner"},
			}},
			{ID: "scn_3", Tone: "nervous", Persona: "night_owl", Lines: []Line{
				{Text: "我不敢看了", Translation: "i can't watch"},
				{Text: "鏡頭別亂動啊", Translation: "stop moving the camera"},
			}},
		},
		"sfx_reaction": {
			{ID: "sfx_1", Tone: "scared", Persona: "believer", Lines: []Line{
				{Text: "剛剛那是什麼聲音？！", Translation: "what was that sound?!"},
				{Text: "你們也聽到了嗎", Translation: "did you all hear that too"},
			}},
			{ID: "sfx_2", Tone: "panicked", Persona: "thrill_seeker", Lines: []Line{
				{Text: "有東西在敲牆", Translation: "something is knocking on the wall"},
				{Text: "聲音越來越近了", Translation: "the sound is getting closer"},
			}},
			{ID: "sfx_3", Tone: "doubtful", Persona: "skeptic", Lines: []Line{
				{Text: "八成是水管啦", Translation: "probably just the pipes"},
				{Text: "老房子都會有怪聲", Translation: "old houses always creak"},
			}},
		},
		"whisper": {
			{ID: "whi_1", Tone: "hushed", Persona: "believer", Lines: []Line{
				{Text: "噓……你們聽 有人在小聲說話", Translation: "shh... listen, someone is whispering"},
			}},
			{ID: "whi_2", Tone: "hushed", Persona: "night_owl", Lines: []Line{
				{Text: "好像有聲音在叫名字", Translation: "it sounds like a voice calling a name"},
			}},
		},
		"knock": {
			{ID: "knk_1", Tone: "alarmed", Persona: "believer", Lines: []Line{
				{Text: "敲門聲！數了嗎 三下", Translation: "knocking! did you count, three times"},
			}},
			{ID: "knk_2", Tone: "alarmed", Persona: "thrill_seeker", Lines: []Line{
				{Text: "又敲了 這次在走廊那邊", Translation: "it knocked again, from the hallway this time"},
			}},
		},
		"lock_challenge": {
			{ID: "lck_1", Tone: "cold", Persona: "spirit", Lines: []Line{
				{Text: "@{user} 它在看著你 別走開", Translation: "@{user} it is watching you, don't leave"},
			}},
			{ID: "lck_2", Tone: "cold", Persona: "spirit", Lines: []Line{
				{Text: "@{user} 只有你能回答", Translation: "@{user} only you can answer"},
			}},
		},
		"ghost_ping": {
			{ID: "png_1", Tone: "cold", Persona: "spirit", Lines: []Line{
				{Text: "@{user} ……還在嗎", Translation: "@{user} ...still there"},
			}},
			{ID: "png_2", Tone: "cold", Persona: "spirit", Lines: []Line{
				{Text: "@{user} 我在等你", Translation: "@{user} i am waiting for you"},
			}},
		},
		"scratch": {
			{ID: "scr_1", Tone: "scared", Persona: "believer", Lines: []Line{
				{Text: "門上有抓痕的聲音", Translation: "something is scratching the door"},
			}},
			{ID: "scr_2", Tone: "scared", Persona: "night_owl", Lines: []Line{
				{Text: "別開門 千萬別開門", Translation: "don't open the door, whatever you do"},
			}},
		},
	}
}

func defaultEvents() map[string]EventSpec {
	events := []EventSpec{
		{
			Key:      "ambient_chatter",
			Topic:    "ambient",
			Cooldown: Duration(8 * time.Second),
		},
		{
			Key:       "whisper_intro",
			Topic:     "whisper",
			Cooldown:  Duration(30 * time.Second),
			FollowUps: []FollowUp{{Key: "knock_far", Delay: Duration(4 * time.Second)}},
		},
		{
			Key:            "knock_far",
			Topic:          "knock",
			Cooldown:       Duration(20 * time.Second),
			SharedKey:      "scare_fx",
			SharedCooldown: Duration(15 * time.Second),
			Sfx:            "sfx_knock_far",
		},
		{
			Key:            "knock_close",
			Topic:          "knock",
			Cooldown:       Duration(20 * time.Second),
			SharedKey:      "scare_fx",
			SharedCooldown: Duration(15 * time.Second),
			Sfx:            "sfx_knock_close",
		},
		{
			Key:            "lights_out",
			Topic:          "scene_reaction",
			Cooldown:       Duration(45 * time.Second),
			SharedKey:      "scare_fx",
			SharedCooldown: Duration(15 * time.Second),
			Scene:          "dark_hall",
			SceneDelay:     Duration(1500 * time.Millisecond),
		},
		{
			Key:            "lock_challenge",
			Topic:          "lock_challenge",
			Kind:           KindLockStart,
			Cooldown:       Duration(2 * time.Minute),
			MinActiveUsers: 2,
			NeedsUnlocked:  true,
			TagsUser:       true,
			FlowID:         "voice_confirm_flow",
		},
		{
			Key:            "door_scratch",
			Topic:          "scratch",
			Cooldown:       Duration(25 * time.Second),
			SharedKey:      "scare_fx",
			SharedCooldown: Duration(15 * time.Second),
			Sfx:            "sfx_scratch",
			SfxDelay:       Duration(800 * time.Millisecond),
		},
	}
	out := make(map[string]EventSpec, len(events))
	for _, e := range events {
		out[e.Key] = e
	}
	return out
}

func defaultFlows() map[string]Flow {
	return map[string]Flow{
		"voice_confirm_flow": {
			ID:          "voice_confirm_flow",
			StartStepID: "s1",
			Steps: map[string]Step{
				"s1": {
					ID: "s1",
					Questions: []Line{
						{Text: "@{user} 剛剛的聲音 是從門邊還是窗邊來的？", Translation: "@{user} that sound — from the door or the window?"},
						{Text: "@{user} 說 你聽到的聲音在哪裡？", Translation: "@{user} tell us, where was the sound?"},
					},
					Unknown: []string{"不知道", "不清楚", "沒聽到", "idk", "dunno"},
					Options: []Option{
						{ID: "door", Keywords: []string{"門邊", "門", "door"}, NextStepID: "s2"},
						{ID: "window", Keywords: []string{"窗邊", "窗", "window"}, ChainEventKey: "knock_far"},
					},
				},
				"s2": {
					ID: "s2",
					Questions: []Line{
						{Text: "@{user} 它現在還在門邊嗎？", Translation: "@{user} is it still at the door?"},
						{Text: "@{user} 再聽一次 門邊還有聲音嗎？", Translation: "@{user} listen again — still a sound at the door?"},
					},
					Unknown: []string{"不知道", "不清楚", "idk"},
					Options: []Option{
						// gone first: its keywords contain the ones below as substrings
						{ID: "gone", Keywords: []string{"不在", "沒有", "走了", "no"}, End: true},
						{ID: "still_there", Keywords: []string{"還在", "有", "yes"}, ChainEventKey: "door_scratch"},
					},
				},
			},
		},
	}
}
