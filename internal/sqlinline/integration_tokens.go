package sqlinline

const QSelectIntegrationToken = `--sql 476f2392-143f-440f-9f73-8aa7944d3ddf
select token
from integration_tokens
where provider = $1::text
limit 1;
`

const QUpsertIntegrationToken = `--sql e2a482e3-e71b-4780-b547-a9d4c862d849
insert into integration_tokens (id, provider, token, properties, created_at, updated_at)
values (gen_random_uuid(), $1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb), now(), now())
on conflict (provider) do update set
    token = excluded.token,
    properties = excluded.properties,
    updated_at = now();
`

const QDeleteIntegrationToken = `--sql 599cc2c1-7141-4196-99d0-a8fa8ec3ac4a
delete from integration_tokens
where provider = $1::text;
`
